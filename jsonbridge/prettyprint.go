package jsonbridge

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/drwjrice/au/value"
)

// Lookup resolves a dictionary index to its interned string, satisfied by
// decoder.Decoder.Lookup.
type Lookup func(index int) (string, bool)

type containerKind uint8

const (
	kindArray containerKind = iota
	kindObject
)

type frame struct {
	kind          containerKind
	hasChild      bool
	awaitingValue bool // object only: Key just wrote the separator
}

// JSONPrinter is a value.Handler that renders each record delivered to it
// as one line of JSON, the reverse of Encode: a sink for decoded au
// records rather than a source feeding the encoder. Time values are
// rendered back through the same "yyyy-mm-ddThh:mm:ss.uuuuuu" UTC layout
// Encode recognizes on the way in, so scenario #2's round-trip holds.
type JSONPrinter struct {
	value.NopHandler

	w      *bufio.Writer
	lookup Lookup
	err    error

	stack   []frame
	strBuf  []byte
	collect bool
}

var _ value.Handler = (*JSONPrinter)(nil)

// NewJSONPrinter writes pretty-printed JSON records to w, resolving
// dict-refs through lookup.
func NewJSONPrinter(w io.Writer, lookup Lookup) *JSONPrinter {
	return &JSONPrinter{w: bufio.NewWriter(w), lookup: lookup}
}

// Flush writes any buffered output and returns the first error
// encountered during printing, if any.
func (p *JSONPrinter) Flush() error {
	if p.err != nil {
		return p.err
	}
	return p.w.Flush()
}

func (p *JSONPrinter) writeStr(s string) {
	if p.err != nil {
		return
	}
	if _, err := p.w.WriteString(s); err != nil {
		p.err = err
	}
}

func (p *JSONPrinter) writeQuoted(s string) {
	b, err := json.Marshal(s)
	if err != nil {
		p.err = err
		return
	}
	p.writeStr(string(b))
}

func (p *JSONPrinter) beforeValue() {
	if len(p.stack) == 0 {
		return
	}
	top := &p.stack[len(p.stack)-1]
	if top.kind == kindObject {
		top.awaitingValue = false
		return
	}
	if top.hasChild {
		p.writeStr(", ")
	}
	top.hasChild = true
}

// afterValue ends the current record's output once the stack has unwound
// back to the top level.
func (p *JSONPrinter) afterValue() {
	if len(p.stack) == 0 {
		p.writeStr("\n")
	}
}

func (p *JSONPrinter) Null() {
	p.beforeValue()
	p.writeStr("null")
	p.afterValue()
}

func (p *JSONPrinter) Bool(v bool) {
	p.beforeValue()
	if v {
		p.writeStr("true")
	} else {
		p.writeStr("false")
	}
	p.afterValue()
}

func (p *JSONPrinter) Int(v int64) {
	p.beforeValue()
	p.writeStr(strconv.FormatInt(v, 10))
	p.afterValue()
}

func (p *JSONPrinter) Uint(v uint64) {
	p.beforeValue()
	p.writeStr(strconv.FormatUint(v, 10))
	p.afterValue()
}

func (p *JSONPrinter) Double(v float64) {
	p.beforeValue()
	p.writeStr(strconv.FormatFloat(v, 'g', -1, 64))
	p.afterValue()
}

func (p *JSONPrinter) Time(v int64) {
	p.beforeValue()
	p.writeQuoted(time.Unix(0, v).UTC().Format(timeLayout))
	p.afterValue()
}

func (p *JSONPrinter) StringStart(int) {
	p.collect = true
	p.strBuf = p.strBuf[:0]
}

func (p *JSONPrinter) StringFragment(b []byte) {
	if p.collect {
		p.strBuf = append(p.strBuf, b...)
	}
}

func (p *JSONPrinter) StringEnd() {
	p.collect = false
	p.beforeValue()
	p.writeQuoted(string(p.strBuf))
	p.afterValue()
}

func (p *JSONPrinter) DictRef(idx int) {
	p.beforeValue()
	var s string
	ok := false
	if p.lookup != nil {
		s, ok = p.lookup(idx)
	}
	if !ok {
		s = fmt.Sprintf("<dict-ref %d>", idx)
	}
	p.writeQuoted(s)
	p.afterValue()
}

// SetLookup installs (or replaces) the dictionary lookup used to resolve
// DictRef callbacks, satisfying search.LookupSetter: Grep and Bisect build
// their own decoder internally and call this before handing matched
// records to the printer.
func (p *JSONPrinter) SetLookup(lookup func(index int) (string, bool)) {
	p.lookup = lookup
}

func (p *JSONPrinter) ObjectStart() {
	p.beforeValue()
	p.writeStr("{")
	p.stack = append(p.stack, frame{kind: kindObject})
}

func (p *JSONPrinter) Key(s string) {
	top := &p.stack[len(p.stack)-1]
	if top.hasChild {
		p.writeStr(", ")
	}
	top.hasChild = true
	top.awaitingValue = true
	p.writeQuoted(s)
	p.writeStr(": ")
}

func (p *JSONPrinter) ObjectEnd() {
	p.stack = p.stack[:len(p.stack)-1]
	p.writeStr("}")
	p.afterValue()
}

func (p *JSONPrinter) ArrayStart() {
	p.beforeValue()
	p.writeStr("[")
	p.stack = append(p.stack, frame{kind: kindArray})
}

func (p *JSONPrinter) ArrayEnd() {
	p.stack = p.stack[:len(p.stack)-1]
	p.writeStr("]")
	p.afterValue()
}
