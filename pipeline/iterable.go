package pipeline

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/compose/dataflow/function"
	"github.com/compose/dataflow/label"
)

// taskSeq uniquifies task tokens, so two collections with the same label
// never collide in a registry.
var taskSeq uint64

// A ProcessingTask correlates the elements scattered from one collection
// with the results that come back.  Slots are issued in element order; a
// completion bitmap tracks which slots have produced a result, and the
// exhaustion flag settles on the last issue because the source is probed
// one element ahead.
type ProcessingTask struct {
	token  label.Label
	input  interface{}
	source *label.Peekable

	mu        sync.Mutex
	issued    int
	done      []uint64
	doneCount int
	exhausted bool
	emitted   bool
	results   []interface{}
}

func newProcessingTask(collection interface{}, source *label.Peekable) *ProcessingTask {
	token := label.Label(fmt.Sprintf("%s#%d", label.New(collection), atomic.AddUint64(&taskSeq, 1)))
	return &ProcessingTask{token: token, input: collection, source: source}
}

// Token identifies the task; every element scattered from its collection
// carries it.
func (t *ProcessingTask) Token() label.Label {
	return t.token
}

// next issues the next element with its slot.  Exhaustion is known at issue
// time, not one element later, because the source is peeked ahead.
func (t *ProcessingTask) next() (label.Data, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.source.Next()
	if !ok {
		return label.Data{}, false
	}
	slot := t.issued
	t.issued++
	t.results = append(t.results, nil)
	if slot/64 >= len(t.done) {
		t.done = append(t.done, 0)
	}
	if t.source.Exhausted() {
		t.exhausted = true
	}
	return label.Wrap(t.token, slot, v), true
}

// record stores the result for one slot and reports whether the task just
// became complete.  It reports true exactly once per task; a duplicate
// record for a slot is ignored.
func (t *ProcessingTask) record(slot int, payload interface{}) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if slot < 0 || slot >= t.issued {
		return false
	}
	word, bit := slot/64, uint(slot%64)
	if t.done[word]&(1<<bit) != 0 {
		return false
	}
	t.done[word] |= 1 << bit
	t.doneCount++
	t.results[slot] = payload
	if t.exhausted && t.doneCount == t.issued && !t.emitted {
		t.emitted = true
		return true
	}
	return false
}

// completeEmpty settles a task whose collection produced no elements.
func (t *ProcessingTask) completeEmpty() {
	t.mu.Lock()
	t.exhausted = true
	t.emitted = true
	t.mu.Unlock()
}

// takeResults returns the aggregate in slot order, with skipped elements
// removed.  Failures travel as values, so a slot may hold a
// *ProcessingError; nil is a legitimate result and stays.
func (t *ProcessingTask) takeResults() []interface{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]interface{}, 0, len(t.results))
	for _, r := range t.results {
		if function.IsSkip(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// taskIterator adapts a task's element issue to label.Iterator, which is
// what the head's flattening loop consumes.
type taskIterator struct {
	t *ProcessingTask
}

func (it taskIterator) Next() (interface{}, bool) {
	d, ok := it.t.next()
	if !ok {
		return nil, false
	}
	return d, true
}

type taskRegistry struct {
	mu    sync.Mutex
	tasks map[label.Label]*ProcessingTask
}

func newTaskRegistry() *taskRegistry {
	return &taskRegistry{tasks: map[label.Label]*ProcessingTask{}}
}

func (r *taskRegistry) add(t *ProcessingTask) {
	r.mu.Lock()
	r.tasks[t.token] = t
	r.mu.Unlock()
}

func (r *taskRegistry) get(token label.Label) (*ProcessingTask, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[token]
	return t, ok
}

func (r *taskRegistry) evict(token label.Label) {
	r.mu.Lock()
	delete(r.tasks, token)
	r.mu.Unlock()
}

func (r *taskRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tasks)
}

// An Aggregate is the single reassembled output of one scattered
// collection: the collection as it came in, the per-slot results in element
// order, and the token that correlated them in flight.
type Aggregate struct {
	Token   label.Label
	Input   interface{}
	Results []interface{}
}

// An IterablePipeline scatters each incoming collection across the chain
// element by element and gathers the processed elements back into one
// Aggregate, emitted exactly once per collection with element order
// preserved.  Elements of different collections interleave freely in the
// chain; the task token keeps their results apart.
//
// The emit callback runs on a tail worker goroutine.  A nil callback logs
// the aggregate instead.
type IterablePipeline struct {
	*LabelPipeline
	registry *taskRegistry
	emit     func(agg Aggregate) error
}

// NewIterablePipeline chains nodes like NewPipeline; the head fetches whole
// collections and flattens them.
func NewIterablePipeline(name string, emit func(agg Aggregate) error, nodes ...*Node) (*IterablePipeline, error) {
	ip := &IterablePipeline{registry: newTaskRegistry(), emit: emit}
	lp, err := NewLabelPipeline(name, ip.scatter, ip.gather, nodes...)
	if err != nil {
		return nil, err
	}
	ip.LabelPipeline = lp
	lp.Head().iterableInput = true
	return ip, nil
}

// PendingTasks reports how many collections are currently in flight.
func (ip *IterablePipeline) PendingTasks() int {
	return ip.registry.len()
}

// scatter converts each fetched collection into a task and hands the head's
// flattening loop a labelled iterator over its elements.  An empty
// collection has nothing to scatter, so its aggregate is emitted here.
func (ip *IterablePipeline) scatter(inner GetFunc) GetFunc {
	return func() (interface{}, bool) {
		for {
			v, ok := inner()
			if !ok {
				return nil, false
			}
			it, err := label.ToIterator(v)
			if err != nil {
				ip.l.With("item", fmt.Sprintf("%v", v)).Errorln("dropping non-iterable input:", err)
				continue
			}
			src := label.NewPeekable(it)
			task := newProcessingTask(v, src)
			if src.Exhausted() {
				task.completeEmpty()
				ip.deliver(task)
				continue
			}
			ip.registry.add(task)
			return taskIterator{task}, true
		}
	}
}

// gather consumes labelled results at the tail.  The completion bitmap
// decides when an aggregate is ready; the task is evicted before the
// aggregate is emitted, so nothing arriving later can emit it twice.
func (ip *IterablePipeline) gather(inner PutFunc) PutFunc {
	return func(v interface{}) error {
		d, ok := label.Unwrap(v)
		if !ok {
			return inner(v)
		}
		task, ok := ip.registry.get(d.Label)
		if !ok {
			ip.l.With("task", string(d.Label)).With("slot", d.Index).
				Warnln("result for unknown task dropped")
			return nil
		}
		if task.record(d.Index, d.Payload) {
			ip.deliver(task)
		}
		return nil
	}
}

func (ip *IterablePipeline) deliver(t *ProcessingTask) {
	ip.registry.evict(t.token)
	agg := Aggregate{Token: t.token, Input: t.input, Results: t.takeResults()}
	if ip.emit == nil {
		ip.l.With("task", string(t.token)).Debugf("aggregate ready, %d results", len(agg.Results))
		return
	}
	if err := ip.emit(agg); err != nil {
		ip.l.With("task", string(t.token)).Errorln("aggregate emit failed:", err)
	}
}
