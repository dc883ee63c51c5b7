// Package format defines the wire-level constants of the au stream format:
// frame opcodes, value-body opcodes, magic bytes, version, and the
// compression-type enum used by the optional envelope-compression addendum.
package format

// Version is the format version written in every header frame.
const Version uint64 = 1

// Magic is the fixed tail of a header frame, written immediately after the
// version varint.
var Magic = [3]byte{'a', 'u', 0x00}

// Frame opcodes. A frame always starts with one of these bytes.
const (
	OpHeader    byte = 'H' // version:uvarint, magic, flags:uint8
	OpDictClear byte = 'C' // backOffset:uvarint [, compressionType:uint8]
	OpDictAdd   byte = 'A' // backOffset:uvarint, count:uvarint, count*(len:uvarint, bytes)
	OpValue     byte = 'V' // backOffset:uvarint, length:uvarint, bytes
	OpEnd       byte = 'E' // no payload
)

// Value-body opcodes, used inside the payload of a V frame.
const (
	ValNull        byte = 'N'
	ValTrue        byte = 'T'
	ValFalse       byte = 'F'
	ValInt         byte = 'I' // signed varint (zigzag)
	ValUint        byte = 'U' // unsigned varint
	ValDouble      byte = 'D' // 8 bytes, little-endian IEEE-754 binary64
	ValTime        byte = 't' // signed varint nanoseconds since Unix epoch
	ValString      byte = 'S' // varint length + UTF-8 bytes
	ValDictRef     byte = 'X' // varint dictionary index
	ValObjectStart byte = '{'
	ValObjectEnd   byte = '}'
	ValArrayStart  byte = '['
	ValArrayEnd    byte = ']'
)

// IsFrameOpcode reports whether b opens a top-level frame.
func IsFrameOpcode(b byte) bool {
	switch b {
	case OpHeader, OpDictClear, OpDictAdd, OpValue, OpEnd:
		return true
	default:
		return false
	}
}

// CompressionType selects the envelope-compression codec applied to
// oversized V-frame bodies. It is recorded once per clear epoch (see
// OpDictClear) when the header's compression flag bit is set. The zero
// value is CompressionNone, matching a header with the flag bit unset.
type CompressionType uint8

const (
	CompressionNone CompressionType = 0x0
	CompressionZstd CompressionType = 0x1
	CompressionS2   CompressionType = 0x2
	CompressionLZ4  CompressionType = 0x3
)

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// HeaderFlags is the single flag byte written in a header frame after the
// version varint and magic. Bit 0 toggles value-frame envelope compression.
type HeaderFlags uint8

const flagCompressionEnabled HeaderFlags = 1 << 0

// CompressionEnabled reports whether bit 0 is set.
func (f HeaderFlags) CompressionEnabled() bool {
	return f&flagCompressionEnabled != 0
}

// WithCompressionEnabled returns f with bit 0 set or cleared.
func (f HeaderFlags) WithCompressionEnabled(enabled bool) HeaderFlags {
	if enabled {
		return f | flagCompressionEnabled
	}
	return f &^ flagCompressionEnabled
}
