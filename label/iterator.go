package label

import (
	"fmt"
	"reflect"
)

// Iterator draws elements from a decomposable input one at a time.  Next
// returns ok=false once the source is exhausted.
type Iterator interface {
	Next() (interface{}, bool)
}

type sliceIterator struct {
	s []interface{}
	i int
}

func (it *sliceIterator) Next() (interface{}, bool) {
	if it.i >= len(it.s) {
		return nil, false
	}
	v := it.s[it.i]
	it.i++
	return v, true
}

// FromSlice returns an Iterator over s.
func FromSlice(s []interface{}) Iterator {
	return &sliceIterator{s: s}
}

type chanIterator struct {
	ch <-chan interface{}
}

func (it *chanIterator) Next() (interface{}, bool) {
	v, ok := <-it.ch
	return v, ok
}

// FromChan returns an Iterator that blocks on ch until it is closed.
func FromChan(ch <-chan interface{}) Iterator {
	return &chanIterator{ch: ch}
}

// ToIterator coerces v into an Iterator.  Iterators pass through, slices and
// arrays are walked by reflection, receive-capable channels stream.  Anything
// else is an error: a scalar is a value, not an iterable.
func ToIterator(v interface{}) (Iterator, error) {
	switch t := v.(type) {
	case Iterator:
		return t, nil
	case []interface{}:
		return FromSlice(t), nil
	case chan interface{}:
		return FromChan(t), nil
	case <-chan interface{}:
		return FromChan(t), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		s := make([]interface{}, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			s[i] = rv.Index(i).Interface()
		}
		return FromSlice(s), nil
	}
	return nil, fmt.Errorf("value of type %T is not iterable", v)
}

// Peekable wraps an Iterator with a one-element lookahead, so exhaustion is
// known one draw early: after the last element is returned, Exhausted
// already reports true.  Not safe for concurrent use; callers serialize
// draws (the node fetch lock does).
type Peekable struct {
	it        Iterator
	peeked    interface{}
	hasPeeked bool
}

// NewPeekable primes the lookahead by drawing the first element.
func NewPeekable(it Iterator) *Peekable {
	p := &Peekable{it: it}
	p.advance()
	return p
}

func (p *Peekable) advance() {
	p.peeked, p.hasPeeked = p.it.Next()
}

// Next returns the element drawn by the previous lookahead and advances the
// probe.
func (p *Peekable) Next() (interface{}, bool) {
	if !p.hasPeeked {
		return nil, false
	}
	v := p.peeked
	p.advance()
	return v, true
}

// Exhausted reports whether the source has no further elements, i.e. the
// next call to Next will return ok=false.
func (p *Peekable) Exhausted() bool {
	return !p.hasPeeked
}
