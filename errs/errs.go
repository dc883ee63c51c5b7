// Package errs defines the sentinel errors shared across the au packages.
//
// Callers should compare against these with errors.Is; wrapped errors carry
// additional context (byte offsets, opcodes) via fmt.Errorf("%w", ...).
package errs

import "errors"

var (
	// ErrIO wraps a failure reading from or writing to the underlying stream.
	ErrIO = errors.New("au: io error")

	// ErrParse indicates the byte stream does not contain a well-formed au
	// frame at the current position.
	ErrParse = errors.New("au: parse error")

	// ErrGrow indicates a buffer could not grow to satisfy a requested size.
	ErrGrow = errors.New("au: buffer grow failed")

	// ErrTruncatedVarint indicates a varint was cut off before its
	// continuation bit cleared.
	ErrTruncatedVarint = errors.New("au: truncated varint")

	// ErrInvalidOpcode indicates a frame or value byte did not match any
	// opcode defined by the format.
	ErrInvalidOpcode = errors.New("au: invalid opcode")

	// ErrDictRefOutOfRange indicates a dictionary reference pointed past the
	// end of the current dictionary generation.
	ErrDictRefOutOfRange = errors.New("au: dictionary reference out of range")

	// ErrBadMagic indicates a stream's header did not start with the au
	// magic bytes.
	ErrBadMagic = errors.New("au: bad magic bytes")

	// ErrUnsupportedVersion indicates a stream's header declared a format
	// version this implementation does not understand.
	ErrUnsupportedVersion = errors.New("au: unsupported version")

	// ErrNotSeekable indicates a seek outside the retained history was
	// attempted on a source that was opened without seek capability.
	ErrNotSeekable = errors.New("au: source is not seekable")

	// ErrPinRequired indicates a back-seek was attempted past the retained
	// history without an active pin.
	ErrPinRequired = errors.New("au: position no longer retained, pin required")

	// ErrUnexpectedEOF indicates the stream ended mid-frame.
	ErrUnexpectedEOF = errors.New("au: unexpected end of stream")

	// ErrNoKey indicates a value was produced outside of an object context
	// where a key was required.
	ErrNoKey = errors.New("au: value requires a key in object context")

	// ErrCompression indicates a compressed value-frame body failed to
	// decompress.
	ErrCompression = errors.New("au: compression error")
)
