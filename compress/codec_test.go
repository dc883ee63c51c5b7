package compress_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drwjrice/au/compress"
	"github.com/drwjrice/au/format"
)

func TestCreateCodec(t *testing.T) {
	cases := []format.CompressionType{
		format.CompressionNone,
		format.CompressionZstd,
		format.CompressionS2,
		format.CompressionLZ4,
	}

	for _, ct := range cases {
		codec, err := compress.CreateCodec(ct)
		require.NoError(t, err)
		assert.NotNil(t, codec)
	}
}

func TestCreateCodecInvalid(t *testing.T) {
	_, err := compress.CreateCodec(format.CompressionType(255))
	assert.Error(t, err)
}

func TestGetCodecSharesInstance(t *testing.T) {
	a, err := compress.GetCodec(format.CompressionZstd)
	require.NoError(t, err)
	b, err := compress.GetCodec(format.CompressionZstd)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGetCodecUnsupported(t *testing.T) {
	_, err := compress.GetCodec(format.CompressionType(255))
	assert.Error(t, err)
}

func roundTrip(t *testing.T, codec compress.Codec, data []byte) {
	t.Helper()

	compressed, err := codec.Compress(data)
	require.NoError(t, err)

	decompressed, err := codec.Decompress(compressed)
	require.NoError(t, err)

	assert.Equal(t, data, decompressed)
}

func TestCodecsRoundTrip(t *testing.T) {
	payloads := [][]byte{
		nil,
		[]byte(""),
		[]byte("a"),
		[]byte(`{"key":"value","arr":[1,2,3],"repeated":"repeated repeated repeated"}`),
	}

	codecs := map[string]compress.Codec{
		"none": compress.NewNoOpCompressor(),
		"zstd": compress.NewZstdCompressor(),
		"s2":   compress.NewS2Compressor(),
		"lz4":  compress.NewLZ4Compressor(),
	}

	for name, codec := range codecs {
		t.Run(name, func(t *testing.T) {
			for _, p := range payloads {
				roundTrip(t, codec, p)
			}
		})
	}
}
