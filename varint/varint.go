// Package varint implements the unsigned LEB128-style and zigzag-signed
// variable-width integer codec used by every au frame and value opcode.
package varint

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/drwjrice/au/errs"
)

// MaxLen is the maximum number of bytes a 64-bit varint can occupy.
const MaxLen = binary.MaxVarintLen64

// AppendUvarint appends the unsigned varint encoding of v to dst and
// returns the extended slice.
func AppendUvarint(dst []byte, v uint64) []byte {
	var buf [MaxLen]byte
	n := binary.PutUvarint(buf[:], v)
	return append(dst, buf[:n]...)
}

// AppendVarint appends the zigzag-encoded signed varint of v to dst and
// returns the extended slice.
func AppendVarint(dst []byte, v int64) []byte {
	return AppendUvarint(dst, zigzagEncode(v))
}

// Uvarint decodes an unsigned varint from the front of src, returning the
// value and the number of bytes consumed. It returns errs.ErrTruncatedVarint
// if src ends before the continuation bit clears.
func Uvarint(src []byte) (uint64, int, error) {
	v, n := binary.Uvarint(src)
	if n == 0 {
		return 0, 0, fmt.Errorf("%w: need more data", errs.ErrTruncatedVarint)
	}
	if n < 0 {
		return 0, 0, fmt.Errorf("%w: overflows 64 bits", errs.ErrTruncatedVarint)
	}
	return v, n, nil
}

// Varint decodes a zigzag-encoded signed varint from the front of src,
// returning the value and the number of bytes consumed.
func Varint(src []byte) (int64, int, error) {
	uval, n, err := Uvarint(src)
	if err != nil {
		return 0, 0, err
	}
	return zigzagDecode(uval), n, nil
}

// ReadUvarint decodes an unsigned varint one byte at a time from r, the
// shape required when reading directly off a bytesource.Source. io.EOF on
// the very first byte is returned unwrapped so callers can treat it as
// recoverable end-of-stream; any later truncation is reported as
// errs.ErrTruncatedVarint.
func ReadUvarint(r io.ByteReader) (uint64, error) {
	var v uint64
	var shift uint
	for i := 0; i < MaxLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if i == 0 && err == io.EOF {
				return 0, io.EOF
			}
			return 0, fmt.Errorf("%w: %v", errs.ErrTruncatedVarint, err)
		}
		if b < 0x80 {
			return v | uint64(b)<<shift, nil
		}
		v |= uint64(b&0x7f) << shift
		shift += 7
	}
	return 0, fmt.Errorf("%w: overflows 64 bits", errs.ErrTruncatedVarint)
}

// ReadVarint decodes a zigzag-encoded signed varint one byte at a time.
func ReadVarint(r io.ByteReader) (int64, error) {
	uval, err := ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	return zigzagDecode(uval), nil
}

func zigzagEncode(v int64) uint64 {
	return uint64(v<<1) ^ uint64(v>>63)
}

func zigzagDecode(uval uint64) int64 {
	return int64(uval>>1) ^ -(int64(uval & 1))
}
