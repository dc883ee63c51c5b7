// Package value defines the callback surface shared by the encoder and
// decoder: a Kind enum for the tagged value universe (§3) and a Handler
// interface driven by whichever side is producing the value tree.
//
// A static interface rather than a tagged-union event channel is used
// deliberately (§9 DESIGN NOTES): both the encoder's record-building walk
// and the decoder's pull-parser are hot paths where the cost of boxing
// events would be felt on every scalar.
package value

// Kind enumerates the tagged value variants of §3's data model.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindDouble
	KindTime
	KindString
	KindDictRef
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindDouble:
		return "double"
	case KindTime:
		return "time"
	case KindString:
		return "string"
	case KindDictRef:
		return "dict-ref"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Handler receives a value tree one callback at a time, in document order.
// Implementations must not retain byte slices passed to them (e.g.
// StringFragment) past the call that delivered them.
//
// Inside an Object, every Key call is immediately followed by exactly one
// value callback sequence (or nested Object/Array) for that key.
type Handler interface {
	Null()
	Bool(v bool)
	Int(v int64)
	Uint(v uint64)
	Double(v float64)
	Time(v int64) // nanoseconds since Unix epoch

	// StringStart/StringFragment/StringEnd deliver a string as one or more
	// fragments (a string may straddle a buffer refill); fragments sum to
	// the length announced in StringStart.
	StringStart(length int)
	StringFragment(b []byte)
	StringEnd()

	DictRef(index int)

	ObjectStart()
	Key(s string)
	ObjectEnd()

	ArrayStart()
	ArrayEnd()
}

// NopHandler implements Handler with no-ops; embed it to implement only
// the callbacks a particular consumer cares about.
type NopHandler struct{}

func (NopHandler) Null()                 {}
func (NopHandler) Bool(bool)              {}
func (NopHandler) Int(int64)              {}
func (NopHandler) Uint(uint64)            {}
func (NopHandler) Double(float64)         {}
func (NopHandler) Time(int64)             {}
func (NopHandler) StringStart(int)        {}
func (NopHandler) StringFragment([]byte)  {}
func (NopHandler) StringEnd()             {}
func (NopHandler) DictRef(int)            {}
func (NopHandler) ObjectStart()           {}
func (NopHandler) Key(string)             {}
func (NopHandler) ObjectEnd()             {}
func (NopHandler) ArrayStart()            {}
func (NopHandler) ArrayEnd()              {}

var _ Handler = NopHandler{}
