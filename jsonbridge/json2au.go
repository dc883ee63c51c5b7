// Package jsonbridge is the JSON front-end named as an external
// collaborator by spec.md §1: a streaming JSON-to-au encoder pump
// (Encode) and an au-to-JSON pretty-printer sink (JSONPrinter). Built on
// stdlib encoding/json rather than a pack library, per DESIGN.md's note
// that the spec itself places this outside the core engineering scope.
package jsonbridge

import (
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"time"

	"github.com/drwjrice/au/encoder"
)

// timeStringLen is the exact length of "yyyy-mm-ddThh:mm:ss.uuuuuu",
// checked before attempting the (comparatively expensive) regex match and
// time.Parse, mirroring Json2Au.cpp's tryTime fast-reject.
const timeStringLen = len("yyyy-mm-ddThh:mm:ss.uuuuuu")

var timeStringPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}\.\d{6}$`)

const timeLayout = "2006-01-02T15:04:05.000000"

// Stats reports how Encode's run went: the record count plus the
// time-string conversion counters Json2Au.cpp reports to stderr. It does
// not include the encoder's own Stats map.
type Stats struct {
	Records                int
	TimeConversionAttempts int
	TimeConversionFailures int
}

// Encode reads successive top-level JSON values from dec (not a single
// JSON array — a bare sequence of values, one per record) and writes each
// as one au record through enc, until dec reports io.EOF or maxEntries
// records have been written (maxEntries <= 0 means unbounded). A value
// that fails to encode aborts only that record; the stream up to the
// previous commit is untouched.
//
// onProgress, if non-nil, is called after every committed record with the
// running record count, letting a caller (cmd/au's json2au) log periodic
// progress the way Json2Au.cpp does every 10,000 records without Encode
// itself knowing anything about logging.
func Encode(dec *json.Decoder, enc *encoder.Encoder, maxEntries int, onProgress ...func(records int)) (Stats, error) {
	dec.UseNumber()

	var progress func(int)
	if len(onProgress) > 0 {
		progress = onProgress[0]
	}

	var stats Stats
	for {
		if maxEntries > 0 && stats.Records >= maxEntries {
			return stats, nil
		}

		tok, err := dec.Token()
		if err == io.EOF {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("jsonbridge: %w", err)
		}

		enc.StartRecord()
		if err := encodeValue(enc, dec, tok, &stats); err != nil {
			enc.Abort()
			return stats, fmt.Errorf("jsonbridge: record %d: %w", stats.Records, err)
		}
		if err := enc.Commit(); err != nil {
			return stats, err
		}
		stats.Records++
		if progress != nil {
			progress(stats.Records)
		}
	}
}

func encodeValue(enc *encoder.Encoder, dec *json.Decoder, tok json.Token, stats *Stats) error {
	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			return encodeObject(enc, dec, stats)
		case '[':
			return encodeArray(enc, dec, stats)
		default:
			return fmt.Errorf("unexpected closing delimiter %q", v)
		}
	case nil:
		return enc.Null()
	case bool:
		return enc.Bool(v)
	case json.Number:
		return encodeNumber(enc, v)
	case string:
		return encodeString(enc, v, stats)
	default:
		return fmt.Errorf("unsupported JSON token type %T", tok)
	}
}

func encodeObject(enc *encoder.Encoder, dec *json.Decoder, stats *Stats) error {
	if err := enc.StartObject(); err != nil {
		return err
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %T", keyTok)
		}
		if err := enc.Key(key); err != nil {
			return err
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}
		if err := encodeValue(enc, dec, valTok, stats); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil { // consume closing '}'
		return err
	}
	return enc.EndObject()
}

func encodeArray(enc *encoder.Encoder, dec *json.Decoder, stats *Stats) error {
	if err := enc.StartArray(); err != nil {
		return err
	}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		if err := encodeValue(enc, dec, tok, stats); err != nil {
			return err
		}
	}
	if _, err := dec.Token(); err != nil { // consume closing ']'
		return err
	}
	return enc.EndArray()
}

// encodeNumber classifies a JSON number the way rapidjson's SAX handler
// does (Int/Uint/Int64/Uint64/Double), since encoding/json's json.Number
// carries no type information of its own.
func encodeNumber(enc *encoder.Encoder, n json.Number) error {
	if u, err := strconv.ParseUint(string(n), 10, 64); err == nil {
		return enc.Uint(u)
	}
	if i, err := strconv.ParseInt(string(n), 10, 64); err == nil {
		return enc.Int(i)
	}
	f, err := n.Float64()
	if err != nil {
		return fmt.Errorf("invalid number %q: %w", n, err)
	}
	return enc.Double(f)
}

// encodeString implements tryTime: a string shaped exactly like
// "yyyy-mm-ddThh:mm:ss.uuuuuu" is converted to a time value instead of
// being emitted as a string (§3.2 of SPEC_FULL.md). tryInt's equivalent
// numeric-string fallback is deliberately not carried (§3.3).
func encodeString(enc *encoder.Encoder, s string, stats *Stats) error {
	if len(s) == timeStringLen {
		stats.TimeConversionAttempts++
		if ns, ok := parseTimeString(s); ok {
			return enc.Time(ns)
		}
		stats.TimeConversionFailures++
	}
	return enc.String(s)
}

func parseTimeString(s string) (int64, bool) {
	if !timeStringPattern.MatchString(s) {
		return 0, false
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, false
	}
	return t.UTC().UnixNano(), true
}
