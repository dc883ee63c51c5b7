package bytesource

import (
	"io"
	"os"
)

// sizerSeeker adapts *os.File so Source can both reseek and report a known
// end position via stat, without probing lseek at runtime (§5.2).
type sizerSeeker struct {
	*os.File
}

func (f sizerSeeker) Size() (int64, error) {
	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// FromFile builds a Source over an *os.File, treating it as seekable. Use
// this for real on-disk paths; for "-"/stdin use FromReader with
// seekable=false.
func FromFile(f *os.File, opts ...Option) *Source {
	return New(sizerSeeker{f}, true, opts...)
}

// FromReader builds a Source over an arbitrary io.Reader, with seekability
// declared explicitly by the caller rather than probed (§5.2). Pass
// seekable=true only when r also implements Seeker.
func FromReader(r io.Reader, seekable bool, opts ...Option) *Source {
	return New(r, seekable, opts...)
}
