// Package search implements record matching and position-based search:
// streaming grep with before/after context, and binary search over a
// sorted stream (bisect), both grounded on
// original_source/src/GrepHandler.h.
package search

import "strings"

// StrPattern matches a string value either exactly (FullMatch) or as a
// substring.
type StrPattern struct {
	Pattern   string
	FullMatch bool
}

// TimeRange is a half-open [Start, End) interval of nanoseconds since the
// Unix epoch.
type TimeRange struct {
	Start int64
	End   int64
}

// Pattern describes what Grep and Bisect search for. Every *Pattern field
// is optional (nil skips that check), mirroring the std::optional fields
// of the original Pattern struct.
type Pattern struct {
	KeyPattern       *string
	IntPattern       *int64
	UintPattern      *uint64
	DoublePattern    *float64
	StrPattern       *StrPattern
	TimestampPattern *TimeRange

	// NumMatches caps the number of matching records Grep reports; nil
	// means unbounded.
	NumMatches *uint32
	// ScanSuffixAmount caps how far past the last match Grep keeps
	// scanning before giving up; nil means unbounded. Bisect sets this
	// to SuffixAmount so the post-bisect linear scan covers the whole
	// region a match could plausibly be in.
	ScanSuffixAmount *uint64

	BeforeContext uint32
	AfterContext  uint32
	Bisect        bool
	Count         bool
}

// RequiresKeyMatch reports whether a value is only checked when it's the
// value of a specific object key.
func (p *Pattern) RequiresKeyMatch() bool {
	return p.KeyPattern != nil
}

// MatchesKey reports whether key satisfies KeyPattern (vacuously true if
// there is none).
func (p *Pattern) MatchesKey(key string) bool {
	if p.KeyPattern == nil {
		return true
	}
	return *p.KeyPattern == key
}

// MatchesTime reports whether ns falls in TimestampPattern's half-open
// interval.
func (p *Pattern) MatchesTime(ns int64) bool {
	if p.TimestampPattern == nil {
		return false
	}
	return ns >= p.TimestampPattern.Start && ns < p.TimestampPattern.End
}

// MatchesUint reports whether v equals UintPattern.
func (p *Pattern) MatchesUint(v uint64) bool {
	return p.UintPattern != nil && *p.UintPattern == v
}

// MatchesInt reports whether v equals IntPattern.
func (p *Pattern) MatchesInt(v int64) bool {
	return p.IntPattern != nil && *p.IntPattern == v
}

// MatchesDouble reports whether v equals DoublePattern.
func (p *Pattern) MatchesDouble(v float64) bool {
	return p.DoublePattern != nil && *p.DoublePattern == v
}

// MatchesString reports whether s satisfies StrPattern, either by exact
// match or substring containment.
func (p *Pattern) MatchesString(s string) bool {
	if p.StrPattern == nil {
		return false
	}
	if p.StrPattern.FullMatch {
		return p.StrPattern.Pattern == s
	}
	return strings.Contains(s, p.StrPattern.Pattern)
}
