// Package encoder implements the au record writer (§4.4): framing,
// dictionary-add batching per record, and value-frame commit.
package encoder

import (
	"fmt"
	"io"
	"math"

	"github.com/drwjrice/au/compress"
	"github.com/drwjrice/au/dict"
	"github.com/drwjrice/au/endian"
	"github.com/drwjrice/au/errs"
	"github.com/drwjrice/au/format"
	"github.com/drwjrice/au/internal/options"
	"github.com/drwjrice/au/internal/pool"
	"github.com/drwjrice/au/varint"
)

type containerKind int

const (
	containerBare containerKind = iota
	containerObject
	containerArray
)

type frame struct {
	kind      containerKind
	needesKey bool // object only: true when the next token must be a key
}

// Encoder writes a sequence of records to an underlying io.Writer as an au
// stream (§4.4). It is not safe for concurrent use.
type Encoder struct {
	w io.Writer

	cfg Config

	dict *dict.Dictionary
	adm  *dict.Admission
	codec compress.Codec
	endian endian.EndianEngine

	scratch     *pool.ByteBuffer
	pendingAdds []string
	dictWatermark int

	stack []frame

	pos            int64
	lastClearPos   int64
	lastDictMutPos int64

	headerWritten bool

	stats map[string]int64
}

// New constructs an Encoder writing to w.
func New(w io.Writer, opts ...Option) (*Encoder, error) {
	cfg := defaultConfig()
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	codec, err := compress.CreateCodec(cfg.Compression)
	if err != nil {
		return nil, err
	}

	d := dict.New()
	e := &Encoder{
		w:     w,
		cfg:   *cfg,
		dict:  d,
		adm:   dict.NewAdmission(d, cfg.Threshold, cfg.MinLength, cfg.BucketCap),
		codec: codec,
		endian: endian.GetLittleEndianEngine(),
		scratch: pool.NewByteBuffer(pool.RecordBufferDefaultSize),
		stats: map[string]int64{
			"Records":        0,
			"DictSize":       0,
			"HashSize":       0,
			"HashBucketCount": 0,
			"CacheSize":      0,
		},
	}
	return e, nil
}

// WriteHeader emits the stream's header frame. Must be called exactly once
// before any record is encoded.
func (e *Encoder) WriteHeader() error {
	if e.headerWritten {
		return nil
	}

	var buf []byte
	buf = append(buf, format.OpHeader)
	buf = varint.AppendUvarint(buf, format.Version)
	buf = append(buf, format.Magic[:]...)
	flags := format.HeaderFlags(0).WithCompressionEnabled(e.cfg.Compression != format.CompressionNone)
	buf = append(buf, byte(flags))

	if err := e.write(buf); err != nil {
		return err
	}

	e.headerWritten = true
	e.lastClearPos = 0
	e.lastDictMutPos = 0
	return nil
}

// Clear manually resets the dictionary, emitting a C frame. The encoder
// also calls this automatically after a commit that leaves the dictionary
// at or above DictCap; the admission index is bounded by eviction, not by
// clears.
func (e *Encoder) Clear() error {
	framePos := e.pos

	var backOff uint64
	if e.lastClearPos != 0 {
		backOff = uint64(framePos - e.lastClearPos)
	}

	var buf []byte
	buf = append(buf, format.OpDictClear)
	buf = varint.AppendUvarint(buf, backOff)
	if e.cfg.Compression != format.CompressionNone {
		buf = append(buf, byte(e.cfg.Compression))
	}

	if err := e.write(buf); err != nil {
		return err
	}

	e.adm.Clear()
	e.lastClearPos = framePos
	e.lastDictMutPos = framePos
	return nil
}

// StartRecord begins building a new record's value tree. Call the Value*/
// Key/StartObject/.../EndArray methods to describe it, then Commit (or
// Abort to discard it).
func (e *Encoder) StartRecord() {
	e.scratch.Reset()
	e.pendingAdds = e.pendingAdds[:0]
	e.dictWatermark = e.dict.Size()
	e.stack = e.stack[:0]
	e.stack = append(e.stack, frame{kind: containerBare})
}

// Abort discards the in-progress record, reverting any dictionary
// promotions it staged (§4.4: "discards the scratch region without
// touching the output").
func (e *Encoder) Abort() {
	for _, s := range e.pendingAdds {
		e.adm.Unadmit(s)
	}
	e.dict.TruncateTo(e.dictWatermark)
	e.pendingAdds = e.pendingAdds[:0]
	e.scratch.Reset()
	e.stack = e.stack[:0]
}

// Commit flushes the in-progress record: a pending A frame (if any
// strings were promoted while building the value), then the V frame
// carrying the buffered value bytes.
func (e *Encoder) Commit() error {
	if len(e.stack) != 1 {
		return fmt.Errorf("%w: record ended with unbalanced containers", errs.ErrParse)
	}

	if len(e.pendingAdds) > 0 {
		if err := e.flushDictAdd(); err != nil {
			return err
		}
	}

	body := e.scratch.Bytes()
	if e.cfg.Compression != format.CompressionNone && len(body) >= e.cfg.CompressMinLen {
		compressed, err := e.codec.Compress(body)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrCompression, err)
		}
		body = compressed
	}

	framePos := e.pos
	var backOff uint64
	if e.lastDictMutPos != 0 {
		backOff = uint64(framePos - e.lastDictMutPos)
	}

	var buf []byte
	buf = append(buf, format.OpValue)
	buf = varint.AppendUvarint(buf, backOff)
	buf = varint.AppendUvarint(buf, uint64(len(body)))
	buf = append(buf, body...)

	if err := e.write(buf); err != nil {
		return err
	}

	e.stats["Records"]++
	e.scratch.Reset()
	e.pendingAdds = e.pendingAdds[:0]

	if e.dict.Size() >= e.cfg.DictCap {
		if err := e.Clear(); err != nil {
			return err
		}
	}

	return nil
}

// End emits the optional end-marker frame.
func (e *Encoder) End() error {
	return e.write([]byte{format.OpEnd})
}

// Stats returns the encoder's numeric statistics map (§4.4): Records,
// DictSize, HashSize, HashBucketCount, CacheSize. The map is recomputed on
// each call.
func (e *Encoder) Stats() map[string]int64 {
	e.stats["DictSize"] = int64(e.dict.Size())
	e.stats["HashSize"] = int64(e.adm.HashSize())
	e.stats["HashBucketCount"] = int64(e.adm.BucketCount())
	e.stats["CacheSize"] = int64(e.adm.HashSize())

	out := make(map[string]int64, len(e.stats))
	for k, v := range e.stats {
		out[k] = v
	}
	return out
}

func (e *Encoder) flushDictAdd() error {
	framePos := e.pos
	var backOff uint64
	if e.lastDictMutPos != 0 {
		backOff = uint64(framePos - e.lastDictMutPos)
	}

	var buf []byte
	buf = append(buf, format.OpDictAdd)
	buf = varint.AppendUvarint(buf, backOff)
	buf = varint.AppendUvarint(buf, uint64(len(e.pendingAdds)))
	for _, s := range e.pendingAdds {
		buf = varint.AppendUvarint(buf, uint64(len(s)))
		buf = append(buf, s...)
	}

	if err := e.write(buf); err != nil {
		return err
	}

	e.lastDictMutPos = framePos
	e.pendingAdds = e.pendingAdds[:0]
	return nil
}

func (e *Encoder) write(b []byte) error {
	n, err := e.w.Write(b)
	e.pos += int64(n)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	return nil
}

// --- value-tree construction ---

func (e *Encoder) top() *frame {
	return &e.stack[len(e.stack)-1]
}

// Null appends a null value.
func (e *Encoder) Null() error {
	e.beforeValue()
	e.scratch.MustWrite([]byte{format.ValNull})
	return nil
}

// Bool appends a boolean value.
func (e *Encoder) Bool(v bool) error {
	e.beforeValue()
	if v {
		e.scratch.MustWrite([]byte{format.ValTrue})
	} else {
		e.scratch.MustWrite([]byte{format.ValFalse})
	}
	return nil
}

// Int appends a signed integer value (emitted for values < 0 by the
// caller's own convention; the wire format doesn't require it).
func (e *Encoder) Int(v int64) error {
	e.beforeValue()
	buf := []byte{format.ValInt}
	buf = varint.AppendVarint(buf, v)
	e.scratch.MustWrite(buf)
	return nil
}

// Uint appends a non-negative integer value.
func (e *Encoder) Uint(v uint64) error {
	e.beforeValue()
	buf := []byte{format.ValUint}
	buf = varint.AppendUvarint(buf, v)
	e.scratch.MustWrite(buf)
	return nil
}

// Double appends an IEEE-754 binary64 value, little-endian.
func (e *Encoder) Double(v float64) error {
	e.beforeValue()
	buf := make([]byte, 9)
	buf[0] = format.ValDouble
	e.endian.PutUint64(buf[1:], math.Float64bits(v))
	e.scratch.MustWrite(buf)
	return nil
}

// Time appends nanoseconds-since-epoch as a signed varint.
func (e *Encoder) Time(ns int64) error {
	e.beforeValue()
	buf := []byte{format.ValTime}
	buf = varint.AppendVarint(buf, ns)
	e.scratch.MustWrite(buf)
	return nil
}

// String appends a string value, choosing dict-ref or inline encoding per
// the admission policy and any InternHint (§4.4, §5.1).
func (e *Encoder) String(s string) error {
	e.beforeValue()
	return e.writeString(s)
}

// Key begins an object entry's key. Must be called while inside an Object
// and expecting a key.
func (e *Encoder) Key(s string) error {
	top := e.top()
	if top.kind != containerObject || !top.needesKey {
		return fmt.Errorf("%w: Key called outside object key position", errs.ErrNoKey)
	}
	top.needesKey = false
	return e.writeString(s)
}

func (e *Encoder) writeString(s string) error {
	if e.cfg.InternHint != nil {
		if intern, ok := e.cfg.InternHint(s); ok {
			if intern {
				idx, isNew := e.adm.ForceAdmit(s)
				if isNew {
					e.pendingAdds = append(e.pendingAdds, s)
				}
				e.writeDictRef(idx)
			} else {
				e.writeInlineString(s)
			}
			return nil
		}
	}

	idx, promoted, ok := e.adm.Touch(s)
	if !ok {
		e.writeInlineString(s)
		return nil
	}
	if promoted {
		e.pendingAdds = append(e.pendingAdds, s)
	}
	e.writeDictRef(idx)
	return nil
}

func (e *Encoder) writeInlineString(s string) {
	buf := []byte{format.ValString}
	buf = varint.AppendUvarint(buf, uint64(len(s)))
	buf = append(buf, s...)
	e.scratch.MustWrite(buf)
}

func (e *Encoder) writeDictRef(idx int) {
	buf := []byte{format.ValDictRef}
	buf = varint.AppendUvarint(buf, uint64(idx))
	e.scratch.MustWrite(buf)
}

// StartObject opens an object; subsequent calls must alternate Key/value
// until EndObject.
func (e *Encoder) StartObject() error {
	e.beforeValue()
	e.scratch.MustWrite([]byte{format.ValObjectStart})
	e.stack = append(e.stack, frame{kind: containerObject, needesKey: true})
	return nil
}

// EndObject closes the innermost open object.
func (e *Encoder) EndObject() error {
	top := e.top()
	if top.kind != containerObject || !top.needesKey {
		return fmt.Errorf("%w: EndObject called mid-value or outside object", errs.ErrParse)
	}
	e.stack = e.stack[:len(e.stack)-1]
	e.scratch.MustWrite([]byte{format.ValObjectEnd})
	return nil
}

// StartArray opens an array.
func (e *Encoder) StartArray() error {
	e.beforeValue()
	e.scratch.MustWrite([]byte{format.ValArrayStart})
	e.stack = append(e.stack, frame{kind: containerArray})
	return nil
}

// EndArray closes the innermost open array.
func (e *Encoder) EndArray() error {
	top := e.top()
	if top.kind != containerArray {
		return fmt.Errorf("%w: EndArray called outside array", errs.ErrParse)
	}
	e.stack = e.stack[:len(e.stack)-1]
	e.scratch.MustWrite([]byte{format.ValArrayEnd})
	return nil
}

// beforeValue marks that an object awaiting a key just received its value,
// so the next token is a key again.
func (e *Encoder) beforeValue() {
	top := e.top()
	if top.kind == containerObject {
		top.needesKey = true
	}
}

