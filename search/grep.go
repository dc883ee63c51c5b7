package search

import (
	"io"

	"github.com/drwjrice/au/bytesource"
	"github.com/drwjrice/au/decoder"
	"github.com/drwjrice/au/value"
)

// Grep scans records from src (already positioned at the stream's start)
// and delivers every record that matches pattern to output, honoring
// BeforeContext/AfterContext/NumMatches/Count. It returns the number of
// matching records found.
//
// Grounded on GrepHandler.h's reallyDoGrep: a sliding window of the last
// BeforeContext+1 record start positions is kept; on a match, the window
// is replayed through output (seeking src back to the window's oldest
// position and re-decoding forward) and AfterContext further records are
// forced through output without being checked.
func Grep(pattern *Pattern, src *bytesource.Source, output value.Handler) (int, error) {
	dec := decoder.New(src)
	if err := dec.ReadHeader(); err != nil {
		return 0, err
	}
	if ls, ok := output.(LookupSetter); ok {
		ls.SetLookup(dec.Lookup)
	}
	return grepFrom(pattern, src, dec, output)
}

// grepFrom runs the same scan as Grep but against a decoder that's already
// past the header (and, for Bisect's use, already synced to a mid-stream
// landing point with its dictionary reconstructed). Splitting this out
// lets Bisect hand off to the linear scan without re-reading the header or
// losing the dictionary state Decoder.Sync rebuilt.
func grepFrom(pattern *Pattern, src *bytesource.Source, dec *decoder.Decoder, output value.Handler) (int, error) {
	before, after := pattern.BeforeContext, pattern.AfterContext
	if pattern.Count {
		before, after = 0, 0
	}

	grepHandler := NewGrepHandler(pattern)

	var posBuffer []int64
	var force uint32
	total := 0
	matchPos := src.Pos()

	numMatches := ^uint32(0)
	if pattern.NumMatches != nil {
		numMatches = *pattern.NumMatches
	}
	suffixLen := ^uint64(0)
	if pattern.ScanSuffixAmount != nil {
		suffixLen = *pattern.ScanSuffixAmount
	}

	for {
		if _, err := src.Peek(); err != nil {
			break
		}

		if force == 0 {
			if uint32(total) >= numMatches {
				break
			}
			if uint64(src.Pos()-matchPos) > suffixLen {
				break
			}
		}

		if !pattern.Count && len(posBuffer) == int(before)+1 {
			posBuffer = posBuffer[1:]
		}
		posBuffer = append(posBuffer, src.Pos())

		grepHandler.Reset(dec.Lookup)
		if err := dec.Next(grepHandler); err != nil {
			if err == io.EOF {
				break
			}
			return total, err
		}

		switch {
		case grepHandler.Matched() && total < int(numMatches):
			matchPos = posBuffer[len(posBuffer)-1]
			total++
			if pattern.Count {
				continue
			}
			if err := replay(src, dec, posBuffer, output); err != nil {
				return total, err
			}
			posBuffer = posBuffer[:0]
			force = after

		case force > 0:
			if err := src.Seek(posBuffer[len(posBuffer)-1]); err != nil {
				return total, err
			}
			if err := dec.Next(output); err != nil && err != io.EOF {
				return total, err
			}
			force--
		}
	}

	return total, nil
}

// replay seeks src back to the oldest buffered position and re-decodes
// each buffered record forward through output, relying on Decoder's
// high-water mutation tracking so the dictionary isn't double-applied.
func replay(src *bytesource.Source, dec *decoder.Decoder, posBuffer []int64, output value.Handler) error {
	if len(posBuffer) == 0 {
		return nil
	}
	if err := src.Seek(posBuffer[0]); err != nil {
		return err
	}
	for range posBuffer {
		if err := dec.Next(output); err != nil && err != io.EOF {
			return err
		}
	}
	return nil
}
