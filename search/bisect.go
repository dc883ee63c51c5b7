package search

import (
	"fmt"
	"io"

	"github.com/drwjrice/au/bytesource"
	"github.com/drwjrice/au/decoder"
	"github.com/drwjrice/au/errs"
	"github.com/drwjrice/au/value"
)

// Exact thresholds from GrepHandler.h's doBisect: SCAN_THRESHOLD is how
// close the binary search narrows before handing off to a linear scan;
// PREFIX_AMOUNT is how far before that point the linear scan starts, to
// make sure it picks up any before-context a match near the boundary
// needs; SUFFIX_AMOUNT bounds how far past the last match the linear scan
// is willing to keep looking before giving up.
const (
	ScanThreshold = 256 * 1024
	PrefixAmount  = 512 * 1024
	SuffixAmount  = ScanThreshold + PrefixAmount + 266*1024
)

// Bisect finds pattern in a stream whose records are sorted ascending by
// the field pattern matches on (an int, uint, or timestamp field), using a
// binary search over byte offsets to narrow down to a small region before
// falling back to a linear Grep over that region. Grounded on
// GrepHandler.h's doBisect: src must be seekable and report a known
// length, and pattern must carry an IntPattern, UintPattern, or
// TimestampPattern for GrepHandler.RecordPrecedesPattern to have anything
// to compare against.
func Bisect(pattern *Pattern, src *bytesource.Source, output value.Handler) (int, error) {
	if !src.Seekable() {
		return 0, fmt.Errorf("%w: bisect requires a seekable source", errs.ErrParse)
	}
	end, ok := src.EndPos()
	if !ok {
		return 0, fmt.Errorf("%w: bisect requires a source with a known length", errs.ErrParse)
	}

	dec := decoder.New(src)
	if err := src.Seek(0); err != nil {
		return 0, err
	}
	if err := dec.ReadHeader(); err != nil {
		return 0, err
	}
	if ls, ok := output.(LookupSetter); ok {
		ls.SetLookup(dec.Lookup)
	}
	headerEnd := src.Pos()
	start := headerEnd

	handler := NewGrepHandler(pattern)

	for end-start > ScanThreshold {
		mid := start + (end-start)/2

		if err := src.Seek(mid); err != nil {
			return 0, err
		}
		if err := dec.Sync(); err != nil {
			if err == io.EOF {
				end = mid
				continue
			}
			return 0, err
		}
		landingPos := src.Pos()

		handler.Reset(dec.Lookup)
		if err := dec.Next(handler); err != nil {
			if err == io.EOF {
				end = mid
				continue
			}
			return 0, err
		}

		if handler.RecordPrecedesPattern() {
			start = landingPos
		} else {
			end = mid
		}
	}

	scanStart := start - PrefixAmount
	if scanStart < headerEnd {
		scanStart = headerEnd
	}
	if err := src.Seek(scanStart); err != nil {
		return 0, err
	}
	if err := dec.Sync(); err != nil && err != io.EOF {
		return 0, err
	}

	suffix := uint64(SuffixAmount)
	pattern.ScanSuffixAmount = &suffix

	return grepFrom(pattern, src, dec, output)
}
