package search

import (
	"bytes"

	"github.com/drwjrice/au/value"
)

type contextKind uint8

const (
	ctxBare contextKind = iota
	ctxObject
	ctxArray
)

type contextMarker struct {
	kind     contextKind
	checkVal bool
}

// Lookup resolves a dictionary index to its interned string; Decoder.Lookup
// satisfies this.
type Lookup func(index int) (string, bool)

// LookupSetter lets a value.Handler passed as Grep/Bisect's output receive
// the scanning decoder's dictionary lookup before any DictRef callbacks
// reach it. Grep and Bisect build their own decoder internally, so a
// caller that wants to resolve dict-refs in matched records (e.g.
// jsonbridge.JSONPrinter) has no other way to get at it.
type LookupSetter interface {
	SetLookup(lookup func(index int) (string, bool))
}

// GrepHandler is a value.Handler that decides whether one record's value
// tree matches a Pattern, grounded on GrepHandler.h's GrepHandler class: it
// tracks just enough context (BARE/OBJECT/ARRAY, plus a per-context "are we
// even checking values here" flag driven by key matches) to evaluate the
// pattern in a single streaming pass without materializing the record.
//
// Unlike the original (where object keys are just strings delivered
// through the same onString* callbacks as values, disambiguated by
// counting), this implementation's value.Handler gives keys their own
// Key callback, so GrepHandler doesn't need a key/value parity counter.
type GrepHandler struct {
	value.NopHandler

	pattern *Pattern
	lookup  Lookup

	matched bool
	// less reports that this record strictly precedes anything the
	// pattern could match; it is set on every pass, but only Bisect reads it.
	less bool

	strBuf  bytes.Buffer
	collect bool

	stack []contextMarker
}

var _ value.Handler = (*GrepHandler)(nil)

// NewGrepHandler constructs a handler evaluating pattern.
func NewGrepHandler(pattern *Pattern) *GrepHandler {
	return &GrepHandler{pattern: pattern}
}

// Reset prepares the handler to evaluate the next record, installing the
// dictionary lookup that resolves any DictRef callbacks.
func (g *GrepHandler) Reset(lookup Lookup) {
	g.lookup = lookup
	g.matched = false
	g.less = false
	g.stack = g.stack[:0]
	g.stack = append(g.stack, contextMarker{kind: ctxBare, checkVal: !g.pattern.RequiresKeyMatch()})
}

// Matched reports whether the most recently handled record satisfied the
// pattern.
func (g *GrepHandler) Matched() bool { return g.matched }

// RecordPrecedesPattern reports whether the most recently handled record
// strictly precedes anything the pattern could match, the signal Bisect
// uses to steer its binary search.
func (g *GrepHandler) RecordPrecedesPattern() bool { return g.less }

func (g *GrepHandler) top() *contextMarker { return &g.stack[len(g.stack)-1] }

func (g *GrepHandler) Null() {}

func (g *GrepHandler) Bool(bool) {}

func (g *GrepHandler) Int(v int64) {
	c := g.top()
	if c.checkVal && g.pattern.MatchesInt(v) {
		g.matched = true
	}
	if c.checkVal && g.pattern.IntPattern != nil && v < *g.pattern.IntPattern {
		g.less = true
	}
}

func (g *GrepHandler) Uint(v uint64) {
	c := g.top()
	if c.checkVal && g.pattern.MatchesUint(v) {
		g.matched = true
	}
	if c.checkVal && g.pattern.UintPattern != nil && v < *g.pattern.UintPattern {
		g.less = true
	}
}

func (g *GrepHandler) Time(v int64) {
	c := g.top()
	if c.checkVal && g.pattern.MatchesTime(v) {
		g.matched = true
	}
	if c.checkVal && g.pattern.TimestampPattern != nil && v < g.pattern.TimestampPattern.Start {
		g.less = true
	}
}

func (g *GrepHandler) Double(v float64) {
	if g.top().checkVal && g.pattern.MatchesDouble(v) {
		g.matched = true
	}
}

func (g *GrepHandler) DictRef(idx int) {
	if !g.top().checkVal || g.lookup == nil {
		return
	}
	if s, ok := g.lookup(idx); ok && g.pattern.MatchesString(s) {
		g.matched = true
	}
}

func (g *GrepHandler) ObjectStart() {
	g.stack = append(g.stack, contextMarker{kind: ctxObject})
}

func (g *GrepHandler) Key(s string) {
	g.top().checkVal = g.pattern.MatchesKey(s)
}

func (g *GrepHandler) ObjectEnd() {
	g.stack = g.stack[:len(g.stack)-1]
}

func (g *GrepHandler) ArrayStart() {
	checkVal := g.top().checkVal
	g.stack = append(g.stack, contextMarker{kind: ctxArray, checkVal: checkVal})
}

func (g *GrepHandler) ArrayEnd() {
	g.stack = g.stack[:len(g.stack)-1]
}

func (g *GrepHandler) StringStart(n int) {
	g.collect = g.pattern.StrPattern != nil
	if g.collect {
		g.strBuf.Reset()
		g.strBuf.Grow(n)
	}
}

func (g *GrepHandler) StringFragment(b []byte) {
	if g.collect {
		g.strBuf.Write(b)
	}
}

func (g *GrepHandler) StringEnd() {
	if !g.collect {
		return
	}
	if g.top().checkVal && g.pattern.MatchesString(g.strBuf.String()) {
		g.matched = true
	}
}
