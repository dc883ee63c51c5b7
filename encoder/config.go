package encoder

import (
	"github.com/drwjrice/au/dict"
	"github.com/drwjrice/au/format"
	"github.com/drwjrice/au/internal/options"
)

// InternHint lets a caller override the admission policy for a given
// string (§5.1). It receives the string being written, whether an object
// key or a value; the enclosing object key is not passed. ok reports
// whether the hint applies to s at all; when ok is true, intern selects
// forced dict-ref (true) or forced inline (false).
type InternHint func(s string) (intern bool, ok bool)

// Config holds an Encoder's construction-time parameters. Use With*
// functions with New to set non-default values.
type Config struct {
	Threshold      int
	MinLength      int
	BucketCap      int
	DictCap        int
	InternHint     InternHint
	Compression    format.CompressionType
	CompressMinLen int
}

func defaultConfig() *Config {
	return &Config{
		Threshold:      dict.DefaultThreshold,
		MinLength:      dict.DefaultMinLength,
		BucketCap:      dict.DefaultBucketCap,
		DictCap:        250_000,
		Compression:    format.CompressionNone,
		CompressMinLen: 4096,
	}
}

// Option configures a Config at Encoder construction time.
type Option = options.Option[*Config]

// WithThreshold sets the admission hit-count threshold (default 10).
func WithThreshold(n int) Option {
	return options.NoError(func(c *Config) { c.Threshold = n })
}

// WithMinLength sets the minimum string length eligible for admission
// (default 4).
func WithMinLength(n int) Option {
	return options.NoError(func(c *Config) { c.MinLength = n })
}

// WithBucketCap sets the admission index's bounded hash-bucket cap.
func WithBucketCap(n int) Option {
	return options.NoError(func(c *Config) { c.BucketCap = n })
}

// WithDictCap sets the soft cap on dictionary size before an automatic
// clear is emitted (default 250,000).
func WithDictCap(n int) Option {
	return options.NoError(func(c *Config) { c.DictCap = n })
}

// WithInternHint installs a caller-supplied intern policy resolving §5.1's
// open question: rather than hard-coding key names, callers that need
// key-specific admission behavior supply this callback.
func WithInternHint(hint InternHint) Option {
	return options.NoError(func(c *Config) { c.InternHint = hint })
}

// WithCompression enables envelope compression (§3.6) for value-frame
// bodies at or above minLen bytes.
func WithCompression(ct format.CompressionType, minLen int) Option {
	return options.NoError(func(c *Config) {
		c.Compression = ct
		c.CompressMinLen = minLen
	})
}
