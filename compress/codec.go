package compress

import (
	"fmt"

	"github.com/drwjrice/au/format"
)

// Compressor compresses a value-frame body before it is written to the stream.
type Compressor interface {
	// Compress compresses data and returns the compressed result.
	//
	// The returned slice is newly allocated; the input is not modified.
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses Compressor for a value-frame body read off the stream.
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions of an envelope-compression algorithm.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec builds a Codec for the given compression type.
func CreateCodec(compressionType format.CompressionType) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("compress: invalid compression type %v", compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a shared Codec instance for the given compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("compress: unsupported compression type: %v", compressionType)
}
