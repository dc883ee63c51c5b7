package value_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drwjrice/au/value"
)

func TestKindString(t *testing.T) {
	cases := map[value.Kind]string{
		value.KindNull:    "null",
		value.KindBool:    "bool",
		value.KindInt:     "int",
		value.KindUint:    "uint",
		value.KindDouble:  "double",
		value.KindTime:    "time",
		value.KindString:  "string",
		value.KindDictRef: "dict-ref",
		value.KindArray:   "array",
		value.KindObject:  "object",
	}

	for k, want := range cases {
		assert.Equal(t, want, k.String())
	}
}

func TestNopHandlerSatisfiesInterface(t *testing.T) {
	var h value.Handler = value.NopHandler{}
	h.Null()
	h.Bool(true)
	h.Int(-1)
	h.Uint(1)
	h.Double(1.5)
	h.Time(0)
	h.StringStart(0)
	h.StringFragment(nil)
	h.StringEnd()
	h.DictRef(0)
	h.ObjectStart()
	h.Key("k")
	h.ObjectEnd()
	h.ArrayStart()
	h.ArrayEnd()
}
