//go:build nobuild

package compress

import (
	"github.com/valyala/gozstd"
)

// Compress compresses data using the cgo zstd binding. This file is only
// compiled with the `nobuild` build tag, which also excludes the pure-Go
// implementation in zstd_pure.go; without that tag zstd_pure.go is used.
func (c ZstdCompressor) Compress(data []byte) ([]byte, error) {
	return gozstd.CompressLevel(nil, data, 3), nil
}

func (c ZstdCompressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return gozstd.Decompress(nil, data)
}
