// Package decoder implements the au pull-parser: frame reading, dictionary
// maintenance mirroring the encoder's, and value-tree delivery through a
// value.Handler (§4.5).
package decoder

import (
	"bytes"
	"fmt"
	"io"
	"math"

	"github.com/drwjrice/au/bytesource"
	"github.com/drwjrice/au/compress"
	"github.com/drwjrice/au/dict"
	"github.com/drwjrice/au/endian"
	"github.com/drwjrice/au/errs"
	"github.com/drwjrice/au/format"
	"github.com/drwjrice/au/value"
	"github.com/drwjrice/au/varint"
)

// maxDictAddCount and maxStringLen bound Sync's frame-plausibility probe;
// they are not format limits, just sanity ceilings for resync heuristics.
const (
	maxDictAddCount = 1_000_000
	maxStringLen    = 16 << 20
	maxValueLen     = 256 << 20
)

// Decoder reads frames from a bytesource.Source, maintaining the same
// dictionary state the writing Encoder built, and delivers each record's
// value tree to a caller-supplied value.Handler.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	src  *bytesource.Source
	dict *dict.Dictionary

	version            uint64
	compressionEnabled bool
	compression        format.CompressionType
	codec              compress.Codec
	endian             endian.EndianEngine

	// highWaterFramePos is the byte position of the furthest-forward C/A
	// frame whose dictionary mutation has actually been applied. A grep
	// pass that seeks backward to replay context records (search.Grep)
	// walks back over C/A frames it already processed; re-applying them
	// would duplicate entries and desync indices, so any C/A frame at or
	// behind this mark has its bytes consumed but its mutation skipped.
	highWaterFramePos int64

	headerRead bool

	counts FrameCounts
}

// New constructs a Decoder reading frames from src.
func New(src *bytesource.Source) *Decoder {
	return &Decoder{src: src, dict: dict.New(), highWaterFramePos: -1, endian: endian.GetLittleEndianEngine()}
}

// FrameCounts tallies the frames a Decoder has applied, the counterpart to
// Encoder.Stats for the read side (grounded on Stats.cpp's per-file
// summary: version headers, dictionary resets/adds, and value frames).
type FrameCounts struct {
	Headers     int64
	DictClears  int64
	DictAdds    int64
	Values      int64
	DictEntries int64
}

// Stats returns the decoder's running frame tallies and current
// dictionary size. DictClears and DictAdds count each applied C/A
// mutation; frames skipped as already applied (at or behind
// highWaterFramePos) are not counted. Values counts every V frame read, so
// records re-read by a grep replay are counted again.
func (d *Decoder) Stats() FrameCounts {
	c := d.counts
	c.DictEntries = int64(d.dict.Size())
	return c
}

// Version returns the stream's declared format version. Valid only after
// ReadHeader returns successfully.
func (d *Decoder) Version() uint64 {
	return d.version
}

// Lookup resolves a dictionary index delivered via value.Handler.DictRef.
func (d *Decoder) Lookup(index int) (string, bool) {
	return d.dict.Lookup(index)
}

// ReadHeader consumes the stream's header frame (§4.1). Must be called
// exactly once before Next.
func (d *Decoder) ReadHeader() error {
	op, err := d.src.Next()
	if err != nil {
		return err
	}
	if op != format.OpHeader {
		return fmt.Errorf("%w: expected header frame, got %q", errs.ErrParse, op)
	}

	version, err := varint.ReadUvarint(d.src)
	if err != nil {
		return err
	}
	if version != format.Version {
		return fmt.Errorf("%w: %d", errs.ErrUnsupportedVersion, version)
	}

	var magic [3]byte
	if err := d.src.ReadExact(magic[:]); err != nil {
		return err
	}
	if magic != format.Magic {
		return fmt.Errorf("%w: got %v", errs.ErrBadMagic, magic)
	}

	flagByte, err := d.src.Next()
	if err != nil {
		return err
	}

	d.compressionEnabled = format.HeaderFlags(flagByte).CompressionEnabled()
	d.version = version
	d.headerRead = true
	d.counts.Headers++
	return nil
}

// Next reads and processes frames until a complete record's value tree has
// been delivered to h. It returns io.EOF once the stream ends, whether via
// an explicit E frame or a clean underlying end-of-stream.
func (d *Decoder) Next(h value.Handler) error {
	if !d.headerRead {
		return fmt.Errorf("%w: ReadHeader must be called first", errs.ErrParse)
	}

	for {
		op, err := d.src.Next()
		if err != nil {
			if err == io.EOF {
				return io.EOF
			}
			return err
		}

		switch op {
		case format.OpEnd:
			return io.EOF
		case format.OpDictClear:
			if err := d.readClear(); err != nil {
				if err == io.EOF {
					return fmt.Errorf("%w: stream ended inside a C frame", errs.ErrUnexpectedEOF)
				}
				return err
			}
		case format.OpDictAdd:
			if err := d.readDictAdd(); err != nil {
				if err == io.EOF {
					return fmt.Errorf("%w: stream ended inside an A frame", errs.ErrUnexpectedEOF)
				}
				return err
			}
		case format.OpValue:
			err := d.readValue(h)
			if err == io.EOF {
				return fmt.Errorf("%w: stream ended inside a V frame", errs.ErrUnexpectedEOF)
			}
			return err
		default:
			return fmt.Errorf("%w: unexpected frame opcode %q", errs.ErrInvalidOpcode, op)
		}
	}
}

func (d *Decoder) readClear() error {
	framePos := d.src.Pos() - 1
	apply := framePos > d.highWaterFramePos

	if _, err := varint.ReadUvarint(d.src); err != nil {
		return err
	}

	if d.compressionEnabled {
		b, err := d.src.Next()
		if err != nil {
			return err
		}
		if apply {
			d.compression = format.CompressionType(b)
			codec, err := compress.CreateCodec(d.compression)
			if err != nil {
				return err
			}
			d.codec = codec
		}
	}

	if apply {
		d.dict.Clear()
		d.highWaterFramePos = framePos
		d.counts.DictClears++
	}
	return nil
}

func (d *Decoder) readDictAdd() error {
	framePos := d.src.Pos() - 1
	apply := framePos > d.highWaterFramePos

	if _, err := varint.ReadUvarint(d.src); err != nil {
		return err
	}
	count, err := varint.ReadUvarint(d.src)
	if err != nil {
		return err
	}

	for i := uint64(0); i < count; i++ {
		n, err := varint.ReadUvarint(d.src)
		if err != nil {
			return err
		}
		buf := make([]byte, n)
		if err := d.src.ReadExact(buf); err != nil {
			return err
		}
		if apply {
			d.dict.Add(string(buf))
		}
	}

	if apply {
		d.highWaterFramePos = framePos
		d.counts.DictAdds++
	}
	return nil
}

func (d *Decoder) readValue(h value.Handler) error {
	if _, err := varint.ReadUvarint(d.src); err != nil {
		return err
	}
	length, err := varint.ReadUvarint(d.src)
	if err != nil {
		return err
	}

	body := make([]byte, length)
	if err := d.src.ReadExact(body); err != nil {
		return err
	}

	if d.compressionEnabled && d.codec != nil {
		decompressed, err := d.codec.Decompress(body)
		if err != nil {
			return fmt.Errorf("%w: %v", errs.ErrCompression, err)
		}
		body = decompressed
	}

	d.counts.Values++
	r := bytes.NewReader(body)
	return d.parseValue(r, h)
}

func (d *Decoder) parseValue(r *bytes.Reader, h value.Handler) error {
	op, err := r.ReadByte()
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrUnexpectedEOF, err)
	}

	switch op {
	case format.ValNull:
		h.Null()
	case format.ValTrue:
		h.Bool(true)
	case format.ValFalse:
		h.Bool(false)
	case format.ValInt:
		v, err := varint.ReadVarint(r)
		if err != nil {
			return err
		}
		h.Int(v)
	case format.ValUint:
		v, err := varint.ReadUvarint(r)
		if err != nil {
			return err
		}
		h.Uint(v)
	case format.ValDouble:
		var buf [8]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrUnexpectedEOF, err)
		}
		h.Double(math.Float64frombits(d.endian.Uint64(buf[:])))
	case format.ValTime:
		v, err := varint.ReadVarint(r)
		if err != nil {
			return err
		}
		h.Time(v)
	case format.ValString:
		s, err := d.readString(r)
		if err != nil {
			return err
		}
		h.StringStart(len(s))
		if len(s) > 0 {
			h.StringFragment([]byte(s))
		}
		h.StringEnd()
	case format.ValDictRef:
		idx, err := varint.ReadUvarint(r)
		if err != nil {
			return err
		}
		h.DictRef(int(idx))
	case format.ValObjectStart:
		h.ObjectStart()
		for {
			peek, err := peekByte(r)
			if err != nil {
				return err
			}
			if peek == format.ValObjectEnd {
				r.ReadByte()
				h.ObjectEnd()
				return nil
			}
			key, err := d.readKey(r)
			if err != nil {
				return err
			}
			h.Key(key)
			if err := d.parseValue(r, h); err != nil {
				return err
			}
		}
	case format.ValArrayStart:
		h.ArrayStart()
		for {
			peek, err := peekByte(r)
			if err != nil {
				return err
			}
			if peek == format.ValArrayEnd {
				r.ReadByte()
				h.ArrayEnd()
				return nil
			}
			if err := d.parseValue(r, h); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("%w: %q", errs.ErrInvalidOpcode, op)
	}
	return nil
}

// readKey reads an object key, which may be encoded either inline (a plain
// string opcode) or as a dictionary reference (§4.4's writeString applies
// the same admission policy to keys and values alike).
func (d *Decoder) readKey(r *bytes.Reader) (string, error) {
	op, err := r.ReadByte()
	if err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUnexpectedEOF, err)
	}

	switch op {
	case format.ValString:
		return d.readString(r)
	case format.ValDictRef:
		idx, err := varint.ReadUvarint(r)
		if err != nil {
			return "", err
		}
		s, ok := d.dict.Lookup(int(idx))
		if !ok {
			return "", fmt.Errorf("%w: index %d", errs.ErrDictRefOutOfRange, idx)
		}
		return s, nil
	default:
		return "", fmt.Errorf("%w: expected string or dict-ref key, got %q", errs.ErrParse, op)
	}
}

func (d *Decoder) readString(r *bytes.Reader) (string, error) {
	n, err := varint.ReadUvarint(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("%w: %v", errs.ErrUnexpectedEOF, err)
	}
	return string(buf), nil
}

func peekByte(r *bytes.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrUnexpectedEOF, err)
	}
	_ = r.UnreadByte()
	return b, nil
}

// Sync resynchronizes the decoder after an arbitrary seek into the middle
// of the stream (§6): the bisect searcher lands at an offset with no
// guarantee it's a frame boundary, so Sync scans forward byte by byte for
// the next position that both looks like a frame opcode and parses as a
// complete, self-consistent frame (declared lengths/counts within sane
// bounds, enough trailing bytes to actually skip over the claimed body).
//
// Unlike a plain frame-boundary scan, Sync also walks the landing frame's
// back-offset chain (§6's "back-offsets let a reader resynchronize from
// any byte offset") to rebuild dictionary state: it follows back-offsets
// from C/A/V frames until it reaches a C frame or a 0 sentinel, then
// replays the C/A frames it found, oldest first, so dict-refs in the
// landing frame (and anything decoded after it) resolve correctly without
// having decoded the stream from the start. It leaves the cursor at the
// landing frame's first byte.
func (d *Decoder) Sync() error {
	for {
		b, err := d.src.Peek()
		if err != nil {
			return err
		}
		if format.IsFrameOpcode(b) && b != format.OpHeader {
			ok, err := d.probeFrame()
			if err != nil {
				return err
			}
			if ok {
				landingPos := d.src.Pos()
				if b != format.OpEnd {
					if err := d.rebuildDictFromChain(landingPos); err != nil {
						return err
					}
				}
				return d.src.Seek(landingPos)
			}
		}
		if _, err := d.src.Next(); err != nil {
			return err
		}
	}
}

// rebuildDictFromChain walks the back-offset chain starting at the frame
// at pos, collecting every C/A frame encountered until it reaches a C
// frame or a back-offset of 0 (the "no prior frame of this kind yet"
// sentinel, §6), then replays those frames oldest-first through
// readClear/readDictAdd so the dictionary matches what it would hold had
// the stream been decoded from the start up to pos.
func (d *Decoder) rebuildDictFromChain(pos int64) error {
	var chain []int64

	for {
		curOp, backOff, err := d.readFrameHeaderAt(pos)
		if err != nil {
			return err
		}
		if curOp == format.OpDictClear || curOp == format.OpDictAdd {
			chain = append(chain, pos)
		}
		if backOff == 0 || curOp == format.OpDictClear {
			break
		}
		pos -= int64(backOff)
	}

	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	// Start from an empty dictionary with no applied frames, so the replay
	// below is applied in full even after an earlier probe further ahead.
	d.dict.Clear()
	d.highWaterFramePos = -1

	for _, p := range chain {
		if err := d.src.Seek(p); err != nil {
			return err
		}
		frameOp, err := d.src.Next()
		if err != nil {
			return err
		}
		switch frameOp {
		case format.OpDictClear:
			if err := d.readClear(); err != nil {
				return err
			}
		case format.OpDictAdd:
			if err := d.readDictAdd(); err != nil {
				return err
			}
		}
	}
	return nil
}

// readFrameHeaderAt reads the opcode and back-offset field of the frame at
// pos without otherwise disturbing decoder state (the cursor is left
// wherever this leaves it; callers reseek explicitly).
func (d *Decoder) readFrameHeaderAt(pos int64) (op byte, backOffset uint64, err error) {
	if err := d.src.Seek(pos); err != nil {
		return 0, 0, err
	}
	op, err = d.src.Next()
	if err != nil {
		return 0, 0, err
	}
	backOffset, err = varint.ReadUvarint(d.src)
	if err != nil {
		return 0, 0, err
	}
	return op, backOffset, nil
}

func (d *Decoder) probeFrame() (bool, error) {
	start := d.src.Pos()
	d.src.SetPin(start)
	defer d.src.ClearPin()

	ok := d.tryProbe()

	if err := d.src.Seek(start); err != nil {
		return false, err
	}
	return ok, nil
}

func (d *Decoder) tryProbe() bool {
	op, err := d.src.Next()
	if err != nil {
		return false
	}

	switch op {
	case format.OpDictClear:
		if _, err := varint.ReadUvarint(d.src); err != nil {
			return false
		}
		if d.compressionEnabled {
			if _, err := d.src.Next(); err != nil {
				return false
			}
		}
		return true
	case format.OpDictAdd:
		if _, err := varint.ReadUvarint(d.src); err != nil {
			return false
		}
		count, err := varint.ReadUvarint(d.src)
		if err != nil || count > maxDictAddCount {
			return false
		}
		for i := uint64(0); i < count; i++ {
			n, err := varint.ReadUvarint(d.src)
			if err != nil || n > maxStringLen {
				return false
			}
			if err := d.src.Skip(int64(n)); err != nil {
				return false
			}
		}
		return true
	case format.OpValue:
		if _, err := varint.ReadUvarint(d.src); err != nil {
			return false
		}
		length, err := varint.ReadUvarint(d.src)
		if err != nil || length > maxValueLen {
			return false
		}
		if err := d.src.Skip(int64(length)); err != nil {
			return false
		}
		return true
	case format.OpEnd:
		return true
	default:
		return false
	}
}
