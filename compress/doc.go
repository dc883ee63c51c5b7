// Package compress provides the optional envelope-compression codecs for
// oversized au value-frame bodies.
//
// A writer may compress the payload of a V frame before it is written to the
// stream when the body exceeds a size threshold (see format.CompressionType
// and the header's compression-enabled flag). The header carries only that
// flag bit; the codec itself is recorded as a trailing byte of every
// dict-clear (C) frame, and a reader resolves it again at each C frame.
//
// # Supported algorithms
//
//   - None: no compression, used for small or already-dense bodies.
//   - Zstd: best ratio, moderate speed; good for archival streams and bodies
//     dominated by long strings or arrays.
//   - S2: balanced ratio and speed; good default for streaming writers.
//   - LZ4: fastest decompression; good for read-heavy workloads.
//
// # Interfaces
//
//	type Compressor interface {
//	    Compress(data []byte) ([]byte, error)
//	}
//
//	type Decompressor interface {
//	    Decompress(data []byte) ([]byte, error)
//	}
//
//	type Codec interface {
//	    Compressor
//	    Decompressor
//	}
//
// CreateCodec and GetCodec resolve a format.CompressionType to a Codec. All
// codec implementations are safe for concurrent use.
package compress
