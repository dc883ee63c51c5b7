package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/drwjrice/au/bytesource"
	"github.com/drwjrice/au/jsonbridge"
	"github.com/drwjrice/au/search"
)

// runGrep implements `au grep [options] file` (spec.md §6),
// grounded on GrepHandler.h's field-by-field Pattern flags: exactly one of
// -i/-u/-d/-s selects what kind of value is being matched, -k scopes the
// match to a specific object key, and -B/-A/-c/-m/--bisect control how
// matches are reported.
func runGrep(args []string) int {
	flags := pflag.NewFlagSet("grep", pflag.ContinueOnError)
	key := flags.StringP("key", "k", "", "only check values of this object key")
	intPattern := flags.StringP("int", "i", "", "match a signed integer value")
	uintPattern := flags.StringP("uint", "u", "", "match an unsigned integer value")
	doublePattern := flags.StringP("double", "d", "", "match a double value")
	strPattern := flags.StringP("str", "s", "", "match a string value (substring, unless --full)")
	full := flags.Bool("full", false, "require --str to match the whole string, not a substring")
	numMatches := flags.Uint32P("matches", "m", 0, "stop after this many matches (0 means unbounded)")
	before := flags.Uint32P("before", "B", 0, "lines of context before each match")
	after := flags.Uint32P("after", "A", 0, "lines of context after each match")
	count := flags.BoolP("count", "c", false, "print only the number of matching records")
	bisect := flags.Bool("bisect", false, "assume the stream is sorted by the matched field and binary search it")
	help := flags.BoolP("help", "h", false, "show this help message")

	if err := flags.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		fmt.Fprintln(os.Stderr, "au grep:", err)
		return 1
	}
	if *help {
		flags.PrintDefaults()
		return 0
	}

	pattern := &search.Pattern{
		BeforeContext: *before,
		AfterContext:  *after,
		Count:         *count,
		Bisect:        *bisect,
	}
	if *key != "" {
		pattern.KeyPattern = key
	}
	if *numMatches > 0 {
		pattern.NumMatches = numMatches
	}

	set := 0
	if *intPattern != "" {
		v, err := strconv.ParseInt(*intPattern, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "au grep: bad -i value %q: %v\n", *intPattern, err)
			return 1
		}
		pattern.IntPattern = &v
		set++
	}
	if *uintPattern != "" {
		v, err := strconv.ParseUint(*uintPattern, 10, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "au grep: bad -u value %q: %v\n", *uintPattern, err)
			return 1
		}
		pattern.UintPattern = &v
		set++
	}
	if *doublePattern != "" {
		v, err := strconv.ParseFloat(*doublePattern, 64)
		if err != nil {
			fmt.Fprintf(os.Stderr, "au grep: bad -d value %q: %v\n", *doublePattern, err)
			return 1
		}
		pattern.DoublePattern = &v
		set++
	}
	if *strPattern != "" {
		pattern.StrPattern = &search.StrPattern{Pattern: *strPattern, FullMatch: *full}
		set++
	}
	if set != 1 {
		fmt.Fprintln(os.Stderr, "au grep: exactly one of -i, -u, -d, -s is required")
		return 1
	}

	positional := flags.Args()
	if len(positional) == 0 {
		fmt.Fprintln(os.Stderr, "au grep: missing file argument")
		return 1
	}
	path := positional[0]

	var src *bytesource.Source
	if path == "-" {
		if *bisect {
			fmt.Fprintln(os.Stderr, "au grep: --bisect requires a seekable file, not stdin")
			return 1
		}
		src = bytesource.FromReader(os.Stdin, false)
	} else {
		f, err := os.Open(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, "au grep:", err)
			return 1
		}
		defer f.Close()
		src = bytesource.FromFile(f)
	}

	printer := jsonbridge.NewJSONPrinter(os.Stdout, nil)

	var (
		n   int
		err error
	)
	if *bisect {
		n, err = search.Bisect(pattern, src, printer)
	} else {
		n, err = search.Grep(pattern, src, printer)
	}
	if ferr := printer.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "au grep:", err)
		return 1
	}

	if *count {
		fmt.Println(n)
	}
	return 0
}
