package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/pflag"

	"github.com/drwjrice/au/bytesource"
	"github.com/drwjrice/au/decoder"
	"github.com/drwjrice/au/value"
	"github.com/drwjrice/au/varint"
)

// valueSizeHandler tallies the by-byte-length distribution of integer
// values a record tree contains, grounded on Stats.cpp's
// SmallIntValueHandler (which measured "bytes the varint actually took"
// off the source cursor; here the same number is derived from the
// already-decoded value via varint's own encoder, since value.Handler
// hands over int64/uint64, not raw bytes).
type valueSizeHandler struct {
	value.NopHandler
	intSizes [12]int64
	doubles  int64
}

func (h *valueSizeHandler) Int(v int64) {
	n := len(varint.AppendVarint(nil, v))
	h.tally(n)
}

func (h *valueSizeHandler) Uint(v uint64) {
	n := len(varint.AppendUvarint(nil, v))
	h.tally(n)
}

func (h *valueSizeHandler) Double(float64) {
	h.doubles++
}

func (h *valueSizeHandler) tally(byteLen int) {
	if byteLen < 1 {
		byteLen = 1
	}
	if byteLen > len(h.intSizes) {
		byteLen = len(h.intSizes)
	}
	h.intSizes[byteLen-1]++
}

// runStats implements `au stats [-d|--dict] [-i|--ints] [files...]`
// (spec.md §6), grounded on Stats.cpp's per-file summary: version headers,
// dictionary resets/adds, values, and (with -i) an integer-size histogram.
func runStats(args []string) int {
	flags := pflag.NewFlagSet("stats", pflag.ContinueOnError)
	showInts := flags.BoolP("ints", "i", false, "show count and by-length histogram of integer values")
	flags.BoolP("dict", "d", false, "dump dictionary contents as they're seen (reserved, currently a no-op)")
	help := flags.BoolP("help", "h", false, "show this help message")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, "au stats:", err)
		return 1
	}
	if *help {
		flags.PrintDefaults()
		return 0
	}

	files := flags.Args()
	if len(files) == 0 {
		files = []string{"-"}
	}

	exit := 0
	for _, f := range files {
		if err := statsOne(f, *showInts); err != nil {
			fmt.Fprintf(os.Stderr, "au stats: %s: %v\n", f, err)
			exit = 1
		}
	}
	return exit
}

func statsOne(path string, showInts bool) error {
	var src *bytesource.Source
	if path == "-" {
		src = bytesource.FromReader(os.Stdin, false)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		src = bytesource.FromFile(f)
	}

	dec := decoder.New(src)
	if err := dec.ReadHeader(); err != nil {
		return err
	}

	sizer := &valueSizeHandler{}
	var records int64
	for {
		err := dec.Next(sizer)
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		records++
	}

	c := dec.Stats()
	fmt.Printf("Stats for %s:\n", path)
	fmt.Printf("  Records: %s\n", commafy(records))
	fmt.Printf("     Version headers: %s\n", commafy(c.Headers))
	fmt.Printf("     Dictionary resets: %s\n", commafy(c.DictClears))
	fmt.Printf("     Dictionary adds: %s\n", commafy(c.DictAdds))
	fmt.Printf("     Values: %s\n", commafy(c.Values))
	fmt.Printf("  Dictionary entries at end: %s\n", commafy(c.DictEntries))

	if showInts {
		var total int64
		for _, n := range sizer.intSizes {
			total += n
		}
		fmt.Printf("  Values:\n")
		fmt.Printf("     Doubles: %s\n", commafy(sizer.doubles))
		fmt.Printf("     Integers: %s\n", commafy(total))
		if total > 0 {
			fmt.Printf("       By length:\n")
			for i, n := range sizer.intSizes {
				fmt.Printf("        %3d: %s (%d%%)\n", i+1, commafy(n), 100*n/total)
			}
		}
	}

	return nil
}

func commafy(v int64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := fmt.Sprintf("%d", v)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
