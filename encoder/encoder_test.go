package encoder_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drwjrice/au/bytesource"
	"github.com/drwjrice/au/decoder"
	"github.com/drwjrice/au/encoder"
	"github.com/drwjrice/au/format"
	"github.com/drwjrice/au/value"
)

// stringKindRecorder captures whether a record's single string value was
// delivered inline or as a dict-ref, one entry per record decoded.
type stringKindRecorder struct {
	value.NopHandler
	kinds []string
}

func (r *stringKindRecorder) StringEnd()  { r.kinds = append(r.kinds, "inline") }
func (r *stringKindRecorder) DictRef(int) { r.kinds = append(r.kinds, "dictref") }

func TestWriteHeaderBytes(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)

	require.NoError(t, e.WriteHeader())

	out := buf.Bytes()
	require.NotEmpty(t, out)
	assert.Equal(t, format.OpHeader, out[0])
	// version varint(1) is one byte, followed by 3 magic bytes, then 1 flags byte.
	assert.Equal(t, byte(1), out[1])
	assert.Equal(t, format.Magic[:], out[2:5])
	assert.Equal(t, byte(0), out[5], "compression disabled by default")
	assert.Len(t, out, 6)
}

func TestWriteHeaderIsIdempotent(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)

	require.NoError(t, e.WriteHeader())
	n := buf.Len()
	require.NoError(t, e.WriteHeader())
	assert.Equal(t, n, buf.Len())
}

func TestCommitEmitsValueFrame(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	before := buf.Len()

	e.StartRecord()
	require.NoError(t, e.StartObject())
	require.NoError(t, e.Key("ok"))
	require.NoError(t, e.Bool(true))
	require.NoError(t, e.EndObject())
	require.NoError(t, e.Commit())

	out := buf.Bytes()[before:]
	require.NotEmpty(t, out)
	assert.Equal(t, format.OpValue, out[0])
}

func TestCommitWithoutClosingContainerFails(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	e.StartRecord()
	require.NoError(t, e.StartArray())
	err = e.Commit()
	assert.Error(t, err)
}

func TestKeyOutsideObjectFails(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	e.StartRecord()
	err = e.Key("x")
	assert.Error(t, err)
}

func TestEndArrayOutsideArrayFails(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	e.StartRecord()
	err = e.EndArray()
	assert.Error(t, err)
}

// TestStringPromotionEmitsDictAddOnEleventhOccurrence mirrors spec scenario
// #3: feeding "repeatedvalue" 11 times with the default threshold (10)
// encodes the first 10 occurrences as inline strings, and only the 11th
// crosses the threshold and is emitted as a dict-ref (§8 scenario #3: "the
// counter crosses a configured threshold... the first 10 occurrences
// encode as inline S strings; the 11th emits an A frame").
func TestStringPromotionEmitsDictAddOnEleventhOccurrence(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf, encoder.WithMinLength(1))
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	for i := 0; i < 11; i++ {
		e.StartRecord()
		require.NoError(t, e.String("repeatedvalue"))
		require.NoError(t, e.Commit())
	}

	assert.Contains(t, string(buf.Bytes()), string(format.OpDictAdd))
	assert.Equal(t, int64(1), e.Stats()["DictSize"])

	src := bytesource.FromReader(bytes.NewReader(buf.Bytes()), true)
	d := decoder.New(src)
	require.NoError(t, d.ReadHeader())

	rec := &stringKindRecorder{}
	for i := 0; i < 11; i++ {
		require.NoError(t, d.Next(rec))
	}
	require.Len(t, rec.kinds, 11)

	for i := 0; i < 10; i++ {
		assert.Equalf(t, "inline", rec.kinds[i], "occurrence %d should still be inline", i+1)
	}
	assert.Equal(t, "dictref", rec.kinds[10], "11th occurrence crosses the threshold and promotes")
}

func TestStringBelowMinLengthNeverPromotes(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf, encoder.WithMinLength(10), encoder.WithThreshold(1))
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	for i := 0; i < 20; i++ {
		e.StartRecord()
		require.NoError(t, e.String("ab"))
		require.NoError(t, e.Commit())
	}

	assert.Equal(t, int64(0), e.Stats()["DictSize"])
}

func TestAbortRollsBackDictPromotion(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf, encoder.WithThreshold(0), encoder.WithMinLength(1))
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	e.StartRecord()
	require.NoError(t, e.String("promoted-now"))
	before := buf.Len()
	e.Abort()

	assert.Equal(t, before, buf.Len(), "abort must not write anything")
	assert.Equal(t, int64(0), e.Stats()["DictSize"], "promotion made during the aborted record must be undone")

	// A subsequent record re-touching the same string should re-promote
	// cleanly rather than being stuck thinking it's already admitted.
	e.StartRecord()
	require.NoError(t, e.String("promoted-now"))
	require.NoError(t, e.Commit())
	assert.Equal(t, int64(1), e.Stats()["DictSize"])
}

func TestInternHintForcesDictRef(t *testing.T) {
	var buf bytes.Buffer
	hint := func(s string) (bool, bool) {
		if s == "id" {
			return true, true
		}
		return false, false
	}
	e, err := encoder.New(&buf, encoder.WithInternHint(hint))
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	e.StartRecord()
	require.NoError(t, e.String("id"))
	require.NoError(t, e.Commit())

	assert.Equal(t, int64(1), e.Stats()["DictSize"], "InternHint should force admission on first occurrence")
}

func TestAutomaticClearAtDictCap(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf,
		encoder.WithDictCap(1),
		encoder.WithThreshold(1),
		encoder.WithMinLength(1),
	)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	e.StartRecord()
	require.NoError(t, e.String("first"))
	require.NoError(t, e.Commit())

	// threshold=1 needs a second occurrence to cross it (hits > threshold).
	e.StartRecord()
	require.NoError(t, e.String("first"))
	require.NoError(t, e.Commit())

	assert.Equal(t, int64(0), e.Stats()["DictSize"], "crossing DictCap triggers an automatic clear")
	assert.Contains(t, string(buf.Bytes()), string(format.OpDictClear))
}

func TestManualClearEmitsFrame(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	before := buf.Len()
	require.NoError(t, e.Clear())
	out := buf.Bytes()[before:]
	require.NotEmpty(t, out)
	assert.Equal(t, format.OpDictClear, out[0])
}

func TestEndEmitsMarker(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	before := buf.Len()
	require.NoError(t, e.End())
	assert.Equal(t, []byte{format.OpEnd}, buf.Bytes()[before:])
}

func TestNestedArrayAndObjectBalance(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	e.StartRecord()
	require.NoError(t, e.StartObject())
	require.NoError(t, e.Key("items"))
	require.NoError(t, e.StartArray())
	require.NoError(t, e.Int(-1))
	require.NoError(t, e.Uint(7))
	require.NoError(t, e.Double(1.5))
	require.NoError(t, e.Null())
	require.NoError(t, e.EndArray())
	require.NoError(t, e.EndObject())
	require.NoError(t, e.Commit())
}

func TestCompressionAppliedAboveMinLen(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf, encoder.WithCompression(format.CompressionS2, 8))
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	header := buf.Bytes()
	assert.NotZero(t, header[5]&1, "compression-enabled flag bit must be set")

	e.StartRecord()
	require.NoError(t, e.String("this string is definitely longer than eight bytes"))
	require.NoError(t, e.Commit())
}
