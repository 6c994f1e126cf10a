package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/compose/dataflow/function"
	"github.com/compose/dataflow/label"
)

// An OrderPipeline restores arrival order at the exit of a concurrent
// chain: workers finish in whatever order they finish, but the emit
// callback sees items exactly in the order the head fetched them.
//
// Completed items wait in a reorder buffer until everything ahead of them
// has been emitted.  The buffer grows while the oldest item is still
// processing; the retry cap keeps that window finite.  Skipped items
// consume their place silently, and failures arrive at the callback as
// *ProcessingError values like any other result.
//
// The callback runs under the reorder lock to keep emission totally
// ordered, so it should not block for long.
type OrderPipeline struct {
	*LabelPipeline

	mu       sync.Mutex
	seq      int
	nextEmit int
	buffer   map[int]interface{}
	emit     func(v interface{}) error
	token    label.Label
}

// NewOrderPipeline chains nodes like NewPipeline.
func NewOrderPipeline(name string, emit func(v interface{}) error, nodes ...*Node) (*OrderPipeline, error) {
	op := &OrderPipeline{
		buffer: map[int]interface{}{},
		emit:   emit,
	}
	lp, err := NewLabelPipeline(name, op.sequence, op.reorder, nodes...)
	if err != nil {
		return nil, err
	}
	op.LabelPipeline = lp
	op.token = label.Label(fmt.Sprintf("stream-%s#%d", name, atomic.AddUint64(&taskSeq, 1)))
	return op, nil
}

// Buffered reports how many completed items are waiting for their turn.
func (op *OrderPipeline) Buffered() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return len(op.buffer)
}

// sequence stamps each fetched item with its arrival position.
func (op *OrderPipeline) sequence(inner GetFunc) GetFunc {
	return func() (interface{}, bool) {
		v, ok := inner()
		if !ok {
			return nil, false
		}
		op.mu.Lock()
		slot := op.seq
		op.seq++
		op.mu.Unlock()
		return label.Wrap(op.token, slot, v), true
	}
}

// reorder buffers each completed item and emits the contiguous run starting
// at the oldest unemitted position.
func (op *OrderPipeline) reorder(inner PutFunc) PutFunc {
	return func(v interface{}) error {
		d, ok := label.Unwrap(v)
		if !ok || d.Label != op.token {
			return inner(v)
		}
		op.mu.Lock()
		defer op.mu.Unlock()
		op.buffer[d.Index] = d.Payload
		for {
			p, ok := op.buffer[op.nextEmit]
			if !ok {
				return nil
			}
			delete(op.buffer, op.nextEmit)
			op.nextEmit++
			if function.IsSkip(p) {
				continue
			}
			if op.emit == nil {
				continue
			}
			if err := op.emit(p); err != nil {
				op.l.With("slot", op.nextEmit-1).Errorln("ordered emit failed:", err)
			}
		}
	}
}
