// Command au is the CLI surface named by spec.md §6: json2au, stats, and
// grep. Exit codes follow §6/§7: 0 success, 1 usage/IO error, non-zero
// parse-error codes propagated from decode failures.
package main

import (
	"fmt"
	"os"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 1
	}

	verb, rest := args[0], args[1:]
	switch verb {
	case "json2au":
		return runJSON2Au(rest)
	case "stats":
		return runStats(rest)
	case "grep":
		return runGrep(rest)
	case "-h", "--help", "help":
		printUsage()
		return 0
	default:
		fmt.Fprintf(os.Stderr, "au: unknown command %q\n", verb)
		printUsage()
		return 1
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: au <command> [arguments]

commands:
  json2au [--no-intern-keys=...] [--compression=...] [in [out [max_records]]]
      encode a sequence of JSON values into an au stream

  stats [-d|--dict] [-i|--ints] [files...]
      report record/frame counts for au streams

  grep -i|-u|-d|-s VALUE [-k KEY] [-B N] [-A N] [-m N] [-c] [--bisect] file
      search an au stream for matching records

Run "au <command> --help" for a command's full flag list.`)
}
