package pipeline

import (
	"sort"

	"github.com/compose/dataflow/function"
	"github.com/compose/dataflow/label"
)

// The three stages of a worker's iteration are each extensible with
// decorators: middleware that wraps the stage function and is composed once,
// when the node starts.  Within a rank, the first decorator registered is the
// innermost; the label and skip decorators carry higher ranks so they always
// wrap the user's, whatever the registration order.

// GetFunc fetches the next item for a worker.  ok=false means the worker
// drew a stop token and must exit.
type GetFunc func() (interface{}, bool)

// GetDecorator wraps the fetch stage.
type GetDecorator func(GetFunc) GetFunc

// ProcessFunc runs the transform stage.  Failures have already been folded
// into the returned value as a *ProcessingError by the time decorators see
// the result, so there is no error return.
type ProcessFunc func(interface{}) interface{}

// ProcDecorator wraps the transform stage.
type ProcDecorator func(ProcessFunc) ProcessFunc

// PutFunc emits one result, routing it to every accepting destination.
type PutFunc func(interface{}) error

// PutDecorator wraps the emit stage.
type PutDecorator func(PutFunc) PutFunc

// decorator ranks; higher wraps further out
const (
	rankUser = iota
	rankLabel
	rankSkip
	rankObserver
)

type getEntry struct {
	d    GetDecorator
	rank int
}

type procEntry struct {
	d    ProcDecorator
	rank int
}

type putEntry struct {
	d    PutDecorator
	rank int
}

func composeGet(base GetFunc, entries []getEntry) GetFunc {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].rank < entries[j].rank })
	fn := base
	for _, e := range entries {
		fn = e.d(fn)
	}
	return fn
}

func composeProc(base ProcessFunc, entries []procEntry) ProcessFunc {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].rank < entries[j].rank })
	fn := base
	for _, e := range entries {
		fn = e.d(fn)
	}
	return fn
}

func composePut(base PutFunc, entries []putEntry) PutFunc {
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].rank < entries[j].rank })
	fn := base
	for _, e := range entries {
		fn = e.d(fn)
	}
	return fn
}

// labelProcDecorator keeps correlation labels attached across the transform:
// a labeled payload is unwrapped, processed, and the result rewrapped under
// the same token and slot index.
func labelProcDecorator(inner ProcessFunc) ProcessFunc {
	return func(v interface{}) interface{} {
		ld, ok := v.(label.Data)
		if !ok {
			return inner(v)
		}
		return label.Wrap(ld.Label, ld.Index, inner(ld.Payload))
	}
}

// skipProcDecorator short-circuits the transform for payloads already marked
// skip, bare or labeled, so skips flow through untouched and the label
// bookkeeping downstream still sees them.
func skipProcDecorator(inner ProcessFunc) ProcessFunc {
	return func(v interface{}) interface{} {
		if function.IsSkip(v) {
			return v
		}
		if ld, ok := v.(label.Data); ok && function.IsSkip(ld.Payload) {
			return v
		}
		return inner(v)
	}
}
