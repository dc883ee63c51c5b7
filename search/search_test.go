package search_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drwjrice/au/bytesource"
	"github.com/drwjrice/au/encoder"
	"github.com/drwjrice/au/search"
	"github.com/drwjrice/au/value"
)

// sizedSizer adapts a *bytes.Reader so bytesource.Source can report a
// known end position (bytes.Reader's Size method doesn't return an error,
// so it doesn't satisfy bytesource.Sizer on its own).
type sizedSizer struct {
	*bytes.Reader
}

func (r sizedSizer) Size() (int64, error) {
	return r.Reader.Size(), nil
}

func newSized(b []byte) *bytesource.Source {
	return bytesource.FromReader(sizedSizer{bytes.NewReader(b)}, true)
}

// recorder collects every value produced for a matched record as a flat
// string trace, good enough to assert which records Grep/Bisect selected.
type recorder struct {
	value.NopHandler
	records [][]string
	cur     []string
}

func (r *recorder) Int(v int64) {
	r.cur = append(r.cur, "int:"+itoa(v))
}
func (r *recorder) Uint(v uint64) {
	r.cur = append(r.cur, "uint:"+utoa(v))
}
func (r *recorder) Key(s string) { r.cur = append(r.cur, "key:"+s) }
func (r *recorder) ObjectStart() {
	r.cur = nil
	r.cur = append(r.cur, "objstart")
}
func (r *recorder) ObjectEnd() { r.records = append(r.records, r.cur) }

func itoa(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := utoa(uint64(v))
	if neg {
		return "-" + s
	}
	return s
}

func utoa(v uint64) string {
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

func writeObjRecord(t *testing.T, e *encoder.Encoder, key string, v int64) {
	t.Helper()
	e.StartRecord()
	require.NoError(t, e.StartObject())
	require.NoError(t, e.Key(key))
	require.NoError(t, e.Int(v))
	require.NoError(t, e.EndObject())
	require.NoError(t, e.Commit())
}

func buildStream(t *testing.T, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())
	for i := 0; i < n; i++ {
		writeObjRecord(t, e, "n", int64(i))
	}
	require.NoError(t, e.End())
	return buf.Bytes()
}

func TestGrepMatchesExactValue(t *testing.T) {
	raw := buildStream(t, 20)
	src := bytesource.FromReader(bytes.NewReader(raw), true)

	target := int64(7)
	pattern := &search.Pattern{IntPattern: &target}
	out := &recorder{}

	n, err := search.Grep(pattern, src, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, out.records, 1)
	assert.Equal(t, []string{"objstart", "key:n", "int:7"}, out.records[0])
}

func TestGrepBeforeAfterContext(t *testing.T) {
	raw := buildStream(t, 20)
	src := bytesource.FromReader(bytes.NewReader(raw), true)

	target := int64(10)
	pattern := &search.Pattern{IntPattern: &target, BeforeContext: 2, AfterContext: 2}
	out := &recorder{}

	n, err := search.Grep(pattern, src, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, out.records, 5, "2 before + match + 2 after")

	var vals []int64
	for _, rec := range out.records {
		require.Len(t, rec, 3)
		vals = append(vals, mustParseInt(t, rec[2]))
	}
	assert.Equal(t, []int64{8, 9, 10, 11, 12}, vals)
}

func mustParseInt(t *testing.T, s string) int64 {
	t.Helper()
	s = s[len("int:"):]
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	var v int64
	for _, c := range s {
		v = v*10 + int64(c-'0')
	}
	if neg {
		v = -v
	}
	return v
}

func TestGrepNumMatchesCap(t *testing.T) {
	raw := buildStream(t, 20)
	src := bytesource.FromReader(bytes.NewReader(raw), true)

	// Value 7 is present in the stream, so the only way total stays 0 and
	// nothing reaches output is NumMatches=0 stopping the scan before any
	// record is reported.
	target := int64(7)
	zero := uint32(0)
	pattern := &search.Pattern{IntPattern: &target, NumMatches: &zero}
	out := &recorder{}

	n, err := search.Grep(pattern, src, out)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, out.records)
}

func TestGrepCountOnlyDoesNotInvokeOutput(t *testing.T) {
	raw := buildStream(t, 20)
	src := bytesource.FromReader(bytes.NewReader(raw), true)

	target := int64(3)
	pattern := &search.Pattern{IntPattern: &target, Count: true}
	out := &recorder{}

	n, err := search.Grep(pattern, src, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, out.records, "count mode never replays matches through output")
}

func TestGrepKeyPatternGatesValueChecks(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf)
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	e.StartRecord()
	require.NoError(t, e.StartObject())
	require.NoError(t, e.Key("other"))
	require.NoError(t, e.Int(5))
	require.NoError(t, e.Key("n"))
	require.NoError(t, e.Int(9))
	require.NoError(t, e.EndObject())
	require.NoError(t, e.Commit())
	require.NoError(t, e.End())

	src := bytesource.FromReader(bytes.NewReader(buf.Bytes()), true)

	five := int64(5)
	key := "n"
	pattern := &search.Pattern{KeyPattern: &key, IntPattern: &five}
	out := &recorder{}

	n, err := search.Grep(pattern, src, out)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "value 5 only appears under key other, which the key pattern excludes")
}

// lookupSpy implements search.LookupSetter to check that Grep/Bisect wire
// up their internal decoder's dictionary lookup before scanning, the way
// jsonbridge.JSONPrinter relies on in cmd/au grep.
type lookupSpy struct {
	value.NopHandler
	lookup func(int) (string, bool)
}

func (s *lookupSpy) SetLookup(lookup func(int) (string, bool)) { s.lookup = lookup }

func TestGrepWiresLookupIntoLookupSetterOutput(t *testing.T) {
	var buf bytes.Buffer
	e, err := encoder.New(&buf, encoder.WithThreshold(1), encoder.WithMinLength(1))
	require.NoError(t, err)
	require.NoError(t, e.WriteHeader())

	e.StartRecord()
	require.NoError(t, e.String("findme"))
	require.NoError(t, e.Commit())
	// threshold=1 needs a second occurrence to cross it (hits > threshold).
	e.StartRecord()
	require.NoError(t, e.String("findme"))
	require.NoError(t, e.Commit())
	require.NoError(t, e.End())

	src := bytesource.FromReader(bytes.NewReader(buf.Bytes()), true)

	pattern := &search.Pattern{StrPattern: &search.StrPattern{Pattern: "findme", FullMatch: true}}
	out := &lookupSpy{}

	_, err = search.Grep(pattern, src, out)
	require.NoError(t, err)
	require.NotNil(t, out.lookup, "Grep should call SetLookup before scanning")

	s, ok := out.lookup(0)
	assert.True(t, ok)
	assert.Equal(t, "findme", s)
}

func TestBisectFindsRecordInSortedStream(t *testing.T) {
	raw := buildStream(t, 200)
	src := newSized(raw)

	target := int64(150)
	pattern := &search.Pattern{IntPattern: &target}
	out := &recorder{}

	n, err := search.Bisect(pattern, src, out)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, out.records, 1)
	assert.Equal(t, []string{"objstart", "key:n", "int:150"}, out.records[0])
}
