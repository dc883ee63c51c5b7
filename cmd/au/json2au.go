package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/oarkflow/log"
	"github.com/spf13/pflag"

	"github.com/drwjrice/au/encoder"
	"github.com/drwjrice/au/format"
	"github.com/drwjrice/au/jsonbridge"
)

const progressInterval = 10_000

// runJSON2Au implements `au json2au [in [out [max_records]]]` (spec.md §6):
// a streaming pump reading one JSON value per record from in and writing
// each as one au record to out, grounded on Json2Au.cpp's positional
// argument shape and its periodic encoder-stats logging.
func runJSON2Au(args []string) int {
	flags := pflag.NewFlagSet("json2au", pflag.ContinueOnError)
	noInternKeys := flags.StringArray("no-intern-keys", nil,
		"never promote a string with this exact content to the dictionary, however often it repeats")
	compression := flags.String("compression", "none", "value-frame compression codec (none, lz4, zstd, s2)")
	help := flags.BoolP("help", "h", false, "show this help message")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, "au json2au:", err)
		return 1
	}
	if *help {
		flags.PrintDefaults()
		return 0
	}

	positional := flags.Args()
	inPath, outPath, maxRecords := "-", "-", 0
	if len(positional) > 0 {
		inPath = positional[0]
	}
	if len(positional) > 1 {
		outPath = positional[1]
	}
	if len(positional) > 2 {
		n, err := parsePositiveInt(positional[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "au json2au: bad max_records %q: %v\n", positional[2], err)
			return 1
		}
		maxRecords = n
	}

	in, closeIn, err := openInput(inPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "au json2au:", err)
		return 1
	}
	defer closeIn()

	out, closeOut, err := openOutput(outPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "au json2au:", err)
		return 1
	}
	defer closeOut()

	ct, err := parseCompression(*compression)
	if err != nil {
		fmt.Fprintln(os.Stderr, "au json2au:", err)
		return 1
	}

	opts := []encoder.Option{}
	if ct != format.CompressionNone {
		opts = append(opts, encoder.WithCompression(ct, 4096))
	}
	if len(*noInternKeys) > 0 {
		suppressed := make(map[string]bool, len(*noInternKeys))
		for _, k := range *noInternKeys {
			suppressed[k] = true
		}
		opts = append(opts, encoder.WithInternHint(func(s string) (bool, bool) {
			if suppressed[s] {
				return false, true
			}
			return false, false
		}))
	}

	enc, err := encoder.New(out, opts...)
	if err != nil {
		fmt.Fprintln(os.Stderr, "au json2au:", err)
		return 1
	}
	if err := enc.WriteHeader(); err != nil {
		fmt.Fprintln(os.Stderr, "au json2au:", err)
		return 1
	}

	dec := json.NewDecoder(bufio.NewReader(in))
	stats, err := jsonbridge.Encode(dec, enc, maxRecords, func(records int) {
		if records%progressInterval != 0 {
			return
		}
		es := enc.Stats()
		log.Info().
			Int64("records", es["Records"]).
			Int64("dictSize", es["DictSize"]).
			Int64("hashSize", es["HashSize"]).
			Int64("hashBucketCount", es["HashBucketCount"]).
			Int64("cacheSize", es["CacheSize"]).
			Msg("json2au progress")
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "au json2au:", err)
		return 1
	}
	if err := enc.End(); err != nil {
		fmt.Fprintln(os.Stderr, "au json2au:", err)
		return 1
	}

	log.Info().
		Int("records", stats.Records).
		Int("timeConversionAttempts", stats.TimeConversionAttempts).
		Int("timeConversionFailures", stats.TimeConversionFailures).
		Msg("json2au complete")

	return 0
}

func parseCompression(s string) (format.CompressionType, error) {
	switch s {
	case "", "none":
		return format.CompressionNone, nil
	case "lz4":
		return format.CompressionLZ4, nil
	case "zstd":
		return format.CompressionZstd, nil
	case "s2":
		return format.CompressionS2, nil
	default:
		return format.CompressionNone, fmt.Errorf("unknown compression codec %q", s)
	}
}

func openInput(path string) (io.Reader, func() error, error) {
	if path == "-" {
		return os.Stdin, func() error { return nil }, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

func openOutput(path string) (io.Writer, func() error, error) {
	if path == "-" {
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}
