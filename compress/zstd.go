package compress

// ZstdCompressor provides Zstandard compression for oversized value-frame bodies.
//
// Zstd trades compression speed for ratio, making it the default pick for streams
// that are written once and read many times (archival logs, batch exports of
// au records where large strings or arrays dominate the value body).
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd compressor with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
