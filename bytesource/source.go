// Package bytesource implements the buffered, seekable, pinnable byte
// stream described in §4.2: a single working buffer with start/current/
// limit cursors, bounded back-seek history, and an opt-in tail-follow
// mode.
package bytesource

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/drwjrice/au/errs"
)

// minHistSize is the minimum amount of consumed data kept in the buffer so
// a back-seek can be satisfied without reseeking the underlying stream.
const minHistSize = 1024

// defaultGrowIncrement is how much the working buffer grows by when it
// fills and cannot be compacted; a constant increment, not exponential.
const defaultGrowIncrement = 256 * 1024

// tailSleep is how long a tailing Source sleeps after a zero-byte read.
var tailSleep = time.Second

// Seeker is the capability a Source needs to reseek its underlying stream.
// *os.File satisfies it; a pipe or stdin does not.
type Seeker interface {
	Seek(offset int64, whence int) (int64, error)
}

// Sizer reports the size of the underlying stream, when known.
type Sizer interface {
	Size() (int64, error)
}

// Source is a bidirectional byte stream with a rolling in-memory buffer,
// absolute position tracking, limited back-seek, forward scan, and a pin
// that extends retained history.
//
// A Source is not safe for concurrent use.
type Source struct {
	r io.Reader

	// seekable is the capability bit resolved at construction (§5.2) rather
	// than probed via lseek. When true, underlying must also implement
	// Seeker.
	seekable   bool
	underlying Seeker

	tail bool

	buf   []byte
	start int64 // absolute position represented by buf[0]
	cur   int   // index into buf of the current read position
	limit int   // index into buf of the end of valid data

	pinPos  int64 // absolute pinned position
	hasPin  bool
	endPos  int64
	hasEnd  bool
	initCap int
}

// Option configures a Source at construction.
type Option func(*Source)

// WithTailMode enables wait-for-data mode (§3 supplemented feature): a
// zero-byte read sleeps one second and retries instead of reporting EOF.
func WithTailMode() Option {
	return func(s *Source) { s.tail = true }
}

// WithBufferSize sets the initial (and growth-increment) buffer size, in
// bytes. Default 256 KiB, mirroring the original implementation's default.
func WithBufferSize(n int) Option {
	return func(s *Source) {
		if n > 0 {
			s.initCap = n
		}
	}
}

// New constructs a Source reading from r. seekable must be true only when
// underlying also implements Seeker (§5.2: seekability is a capability bit
// set by the caller, not probed).
func New(r io.Reader, seekable bool, opts ...Option) *Source {
	s := &Source{
		r:        r,
		seekable: seekable,
		initCap:  defaultGrowIncrement,
		hasEnd:   false,
	}
	if seekable {
		if sk, ok := r.(Seeker); ok {
			s.underlying = sk
		} else {
			s.seekable = false
		}
	}
	for _, opt := range opts {
		opt(s)
	}
	s.buf = make([]byte, 0, s.initCap)

	if sz, ok := r.(Sizer); ok {
		if n, err := sz.Size(); err == nil {
			s.endPos = n
			s.hasEnd = true
		}
	}

	return s
}

// Pos returns the current absolute position in the underlying stream.
func (s *Source) Pos() int64 {
	return s.start + int64(s.cur)
}

// Seekable reports whether this Source was constructed with seek
// capability.
func (s *Source) Seekable() bool {
	return s.seekable
}

// EndPos returns the known size of the underlying stream, if any.
func (s *Source) EndPos() (int64, bool) {
	return s.endPos, s.hasEnd
}

// Next consumes and returns one byte, or io.EOF at a clean stream end.
func (s *Source) Next() (byte, error) {
	for s.cur == s.limit {
		ok, err := s.fill()
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, io.EOF
		}
	}
	b := s.buf[s.cur]
	s.cur++
	return b, nil
}

// ReadByte implements io.ByteReader, letting a Source feed varint.ReadUvarint
// directly.
func (s *Source) ReadByte() (byte, error) {
	return s.Next()
}

// Peek returns the next byte without consuming it.
func (s *Source) Peek() (byte, error) {
	for s.cur == s.limit {
		ok, err := s.fill()
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, io.EOF
		}
	}
	return s.buf[s.cur], nil
}

// ReadExact copies exactly len(dst) bytes into dst, or returns
// errs.ErrUnexpectedEOF if the stream ends first.
func (s *Source) ReadExact(dst []byte) error {
	need := len(dst)
	off := 0
	for need > 0 {
		for s.cur == s.limit {
			ok, err := s.fill()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: wanted %d more bytes", errs.ErrUnexpectedEOF, need)
			}
		}
		n := s.limit - s.cur
		if n > need {
			n = need
		}
		copy(dst[off:off+n], s.buf[s.cur:s.cur+n])
		s.cur += n
		off += n
		need -= n
	}
	return nil
}

// Skip advances the cursor by n bytes. A forward skip (n >= 0) consumes
// directly from the buffer, reading further from the underlying stream as
// needed, so non-seekable sources still work as long as n stays within
// history/forward-reads. A backward skip goes through Seek, which requires
// buffered history.
func (s *Source) Skip(n int64) error {
	if n < 0 {
		return s.Seek(s.Pos() + n)
	}
	for n > 0 {
		if s.avail() == 0 {
			ok, err := s.fill()
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: wanted %d more bytes", errs.ErrUnexpectedEOF, n)
			}
			continue
		}
		adv := int64(s.avail())
		if adv > n {
			adv = n
		}
		s.cur += int(adv)
		n -= adv
	}
	return nil
}

// SetPin asks the Source to retain history back to abspos, extending the
// back-seek window beyond the default minHistSize.
func (s *Source) SetPin(abspos int64) {
	s.pinPos = abspos
	s.hasPin = true
}

// ClearPin releases the pin, allowing history before the default window to
// be discarded on the next compaction.
func (s *Source) ClearPin() {
	s.hasPin = false
}

// Seek moves the cursor to abspos. If abspos lies within retained buffer
// history, only the cursor moves. Otherwise the underlying stream is
// reseeked (requiring Seekable), the buffer is dropped and refilled, and
// any pin is cleared.
func (s *Source) Seek(abspos int64) error {
	if abspos <= s.Pos() && s.Pos()-abspos <= int64(s.cur) {
		rel := s.Pos() - abspos
		s.cur -= int(rel)
		return nil
	}

	if !s.seekable {
		return fmt.Errorf("%w: requested seek to %d", errs.ErrNotSeekable, abspos)
	}

	if _, err := s.underlying.Seek(abspos, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}
	s.buf = s.buf[:0]
	s.cur, s.limit = 0, 0
	s.start = abspos
	s.ClearPin()

	ok, err := s.fill()
	if err != nil {
		return err
	}
	if !ok {
		// Seeking exactly to EOF is legal; nothing more to read.
		return nil
	}
	return nil
}

// ScanTo advances the cursor to the next occurrence of needle, leaving it
// positioned at needle's first byte. It returns false if the stream ends
// before a match is found.
func (s *Source) ScanTo(needle []byte) (bool, error) {
	for {
		for s.avail() < len(needle) {
			ok, err := s.fill()
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}

		window := s.buf[s.cur:s.limit]
		if idx := bytes.Index(window, needle); idx >= 0 {
			s.cur += idx
			return true, nil
		}

		advance := s.avail() - (len(needle) - 1)
		if err := s.Skip(int64(advance)); err != nil {
			return false, err
		}
	}
}

func (s *Source) avail() int {
	return s.limit - s.cur
}

func (s *Source) free() int {
	return cap(s.buf) - s.limit
}

// fill performs one underlying read, compacting the buffer first if
// needed. It returns ok=false only on a clean, non-tail zero-byte read.
func (s *Source) fill() (bool, error) {
	histSz := minHistSize
	if s.hasPin && s.pinPos < s.Pos() {
		if pinned := int(s.Pos() - s.pinPos); pinned > histSz {
			histSz = pinned
		}
	}

	if s.cur > histSz {
		start := s.cur - histSz
		copy(s.buf[0:], s.buf[start:s.limit])
		s.cur -= start
		s.limit -= start
		s.buf = s.buf[:s.limit]
		s.start += int64(start)
	}

	if s.free() == 0 {
		grown := make([]byte, s.limit, cap(s.buf)+s.initCap)
		copy(grown, s.buf)
		s.buf = grown
	}

	s.buf = s.buf[:cap(s.buf)]
	for {
		n, err := s.r.Read(s.buf[s.limit:])
		if err != nil && err != io.EOF {
			return false, fmt.Errorf("%w: %v", errs.ErrIO, err)
		}
		if n == 0 {
			if err == io.EOF || !s.tail {
				s.buf = s.buf[:s.limit]
				return false, nil
			}
			time.Sleep(tailSleep)
			continue
		}
		s.limit += n
		s.buf = s.buf[:s.limit]
		return true, nil
	}
}
