// Package label derives correlation tokens from data values and wraps
// payloads with them, so fragments of a decomposed input can be tied back to
// one logical task after concurrent, out-of-order processing.
package label

import (
	"fmt"
	"hash/fnv"
	"reflect"
)

// A Label is an opaque correlation token.  Deriving a label twice for the
// same logical value yields the same token.
type Label string

// New derives a token from v.  Reference types (pointers, maps, slices,
// channels, funcs) label by identity, so two equal-but-distinct inputs get
// distinct tokens.  Value types label by content.
func New(v interface{}) Label {
	if v == nil {
		return Label("<nil>")
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Chan, reflect.Func, reflect.UnsafePointer:
		return Label(fmt.Sprintf("%T(%#x)", v, rv.Pointer()))
	default:
		h := fnv.New64a()
		fmt.Fprintf(h, "%T:%v", v, v)
		return Label(fmt.Sprintf("%T(%016x)", v, h.Sum64()))
	}
}

// Data wraps one payload with its task token and the slot index it was
// assigned when drawn from the task's source.
type Data struct {
	Label   Label
	Index   int
	Payload interface{}
}

// Wrap tags a payload with a token and slot index.
func Wrap(l Label, index int, payload interface{}) Data {
	return Data{Label: l, Index: index, Payload: payload}
}

// Unwrap reports whether v carries a wrapper and returns it.
func Unwrap(v interface{}) (Data, bool) {
	d, ok := v.(Data)
	return d, ok
}

// Unwrap returns the bare payload.
func (d Data) Unwrap() interface{} {
	return d.Payload
}

func (d Data) String() string {
	return fmt.Sprintf("%s[%d]", d.Label, d.Index)
}
