// Copyright 2025 The Dataflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/compose/dataflow/function"
	"github.com/compose/dataflow/label"
	"github.com/compose/dataflow/log"
	"github.com/compose/dataflow/pipe"
)

const (
	defaultWorkerNum = 10
	defaultQueueSize = 10

	// a failing transform gets five attempts in total before its failure is
	// folded into a ProcessingError and routed downstream
	retryAttempts = 5

	defaultRetryInitial = 1 * time.Second
	defaultRetryMax     = 10 * time.Second
)

// Criteria is a routing predicate: it decides whether data produced by the
// src node is forwarded along an edge.
type Criteria func(src *Node, data interface{}) bool

// AcceptAll is the default Criteria.
func AcceptAll(src *Node, data interface{}) bool { return true }

type destination struct {
	node     *Node
	criteria Criteria
}

// A Node is the basic building block of dataflow graphs: a bounded input
// queue consumed by a pool of workers, each applying the node's transform
// and fanning results out to every destination whose criteria accepts them.
//
// Graphs are wired by name:
//	split, _ := pipeline.NewNode("split", function.Func(splitWords))
//	count, _ := pipeline.NewNode("count", function.Func(countWord))
//	split.SetDestination(count)
type Node struct {
	name   string
	fn     function.Function
	fnName string

	workerNum     int
	queueSize     int
	timeout       time.Duration
	noOutput      bool
	iterableInput bool
	criteria      Criteria
	retryInitial  time.Duration
	retryMax      time.Duration

	queue *pipe.Queue

	destinations []*destination
	sources      map[string]*Node

	getDecorators  []getEntry
	procDecorators []procEntry
	putDecorators  []putEntry

	getFn  GetFunc
	procFn ProcessFunc
	putFn  PutFunc

	// fetchMu serializes {dequeue, flattening, in-flight registration}
	// across the pool, which makes dequeue order total even though
	// completion order is not
	fetchMu   sync.Mutex
	expansion label.Iterator

	inflightMu  sync.Mutex
	inflight    map[int64]interface{}
	inflightSeq int64

	mu      sync.Mutex
	started bool
	stopped bool

	aliveWorkers int32
	processed    uint64

	wg sync.WaitGroup
	l  log.Logger
}

// NewNode creates a Node applying fn, with built-in defaults for anything
// the options and the injected configuration leave unset.
func NewNode(name string, fn function.Function, opts ...OptionFunc) (*Node, error) {
	if name == "" {
		return nil, ValidationError{Name: "node", Reason: "empty name"}
	}
	if fn == nil {
		return nil, ValidationError{Name: name, Reason: "nil function"}
	}
	n := &Node{
		name:     name,
		fn:       fn,
		criteria: AcceptAll,
		sources:  map[string]*Node{},
		inflight: map[int64]interface{}{},
	}
	for _, opt := range opts {
		if err := opt(n); err != nil {
			return nil, err
		}
	}
	if n.workerNum == 0 {
		n.workerNum = defaultWorkerNum
	}
	if n.queueSize == 0 {
		n.queueSize = defaultQueueSize
	}
	if n.retryInitial == 0 {
		n.retryInitial = defaultRetryInitial
	}
	if n.retryMax == 0 {
		n.retryMax = defaultRetryMax
	}
	if n.fnName == "" {
		n.fnName = fmt.Sprintf("%T", fn)
	}
	n.queue = pipe.NewQueue(n.queueSize)
	n.l = log.With("name", n.name).With("fn", n.fnName)

	// the label and skip decorators are structural: they always wrap the
	// user's, whatever order registrations arrive in
	n.procDecorators = append(n.procDecorators,
		procEntry{d: labelProcDecorator, rank: rankLabel},
		procEntry{d: skipProcDecorator, rank: rankSkip},
	)
	return n, nil
}

// Name returns the node's identity within its group.
func (n *Node) Name() string {
	return n.name
}

// FunctionName returns the registry name of the node's transform, or its Go
// type when the node was built directly.
func (n *Node) FunctionName() string {
	return n.fnName
}

// SetDestination registers a bidirectional edge from n to dst.  Without an
// explicit criteria the edge uses dst's own routing predicate, which accepts
// everything unless the node was built otherwise.  Re-registering the same
// destination replaces the edge's criteria in place.
func (n *Node) SetDestination(dst *Node, criteria ...Criteria) *Node {
	c := dst.criteria
	if len(criteria) > 0 {
		c = criteria[0]
	}
	for _, d := range n.destinations {
		if d.node.name == dst.name {
			d.criteria = c
			return n
		}
	}
	n.destinations = append(n.destinations, &destination{node: dst, criteria: c})
	dst.sources[n.name] = n
	return n
}

// Destinations returns the destination nodes in fan-out order.
func (n *Node) Destinations() []*Node {
	out := make([]*Node, 0, len(n.destinations))
	for _, d := range n.destinations {
		out = append(out, d.node)
	}
	return out
}

// Sources returns the nodes that declare n as a destination.
func (n *Node) Sources() []*Node {
	out := make([]*Node, 0, len(n.sources))
	for _, src := range n.sources {
		out = append(out, src)
	}
	return out
}

// AddGetDecorator registers middleware around the fetch stage.  Registration
// must precede Start.
func (n *Node) AddGetDecorator(d GetDecorator) error {
	return n.addGetEntry(d, rankUser)
}

// AddProcDecorator registers middleware around the transform stage.
// Registration must precede Start.
func (n *Node) AddProcDecorator(d ProcDecorator) error {
	return n.addProcEntry(d, rankUser)
}

// AddPutDecorator registers middleware around the emit stage.  Registration
// must precede Start.
func (n *Node) AddPutDecorator(d PutDecorator) error {
	return n.addPutEntry(d, rankUser)
}

func (n *Node) addGetEntry(d GetDecorator, rank int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return ValidationError{Name: n.name, Reason: "get decorator registered after start"}
	}
	n.getDecorators = append(n.getDecorators, getEntry{d: d, rank: rank})
	return nil
}

func (n *Node) addProcEntry(d ProcDecorator, rank int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return ValidationError{Name: n.name, Reason: "proc decorator registered after start"}
	}
	n.procDecorators = append(n.procDecorators, procEntry{d: d, rank: rank})
	return nil
}

func (n *Node) addPutEntry(d PutDecorator, rank int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return ValidationError{Name: n.name, Reason: "put decorator registered after start"}
	}
	n.putDecorators = append(n.putDecorators, putEntry{d: d, rank: rank})
	return nil
}

// Validate checks the node's wiring against its no-output flag.
func (n *Node) Validate() error {
	if n.noOutput && len(n.destinations) > 0 {
		return ValidationError{Name: n.name, Reason: "node marked no_output has destinations"}
	}
	if !n.noOutput && len(n.destinations) == 0 {
		return ValidationError{Name: n.name, Reason: "node without destinations must be marked no_output"}
	}
	return nil
}

// Start validates the wiring, freezes the three decorator chains, and spawns
// exactly the configured number of workers.  The returned WaitGroup is
// released when every worker has terminated.
func (n *Node) Start() (*sync.WaitGroup, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return nil, ValidationError{Name: n.name, Reason: "node already started"}
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}

	n.getFn = composeGet(n.get, n.getDecorators)
	n.procFn = composeProc(n.process, n.procDecorators)
	n.putFn = composePut(n.route, n.putDecorators)

	n.started = true
	n.l.Infoln("node starting...")
	for i := 0; i < n.workerNum; i++ {
		n.wg.Add(1)
		go n.worker(i)
	}
	return &n.wg, nil
}

// End marks intent to stop, appends one stop token per worker after any
// pending payloads, and blocks until every worker has terminated.  It is a
// soft drain: everything enqueued before End, retries included, is fully
// processed first.
func (n *Node) End() {
	n.mu.Lock()
	if !n.started || n.stopped {
		n.mu.Unlock()
		return
	}
	n.stopped = true
	n.mu.Unlock()

	n.l.Infoln("node stopping...")
	n.queue.Close(n.workerNum)
	n.wg.Wait()
	n.l.Infoln("node stopped")
}

// Put enqueues one item, blocking the caller while the queue is at capacity.
func (n *Node) Put(data interface{}) error {
	return n.queue.Put(data)
}

// Running reports whether the node has started and not yet stopped.
func (n *Node) Running() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started && !n.stopped
}

func (n *Node) hasStarted() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.started
}

func (n *Node) worker(id int) {
	defer n.wg.Done()
	atomic.AddInt32(&n.aliveWorkers, 1)
	defer atomic.AddInt32(&n.aliveWorkers, -1)

	l := n.l.With("worker", id)
	l.Debugln("worker started")
	for {
		seq, item, ok := n.fetch()
		if !ok {
			l.Debugln("worker received stop token")
			return
		}
		n.processOne(seq, item, l)
	}
}

// fetch hands one item to a worker.  The fetch lock covers the dequeue, the
// flattening of iterable inputs, and the in-flight registration, so the
// three are atomic with respect to the rest of the pool.
func (n *Node) fetch() (int64, interface{}, bool) {
	n.fetchMu.Lock()
	defer n.fetchMu.Unlock()
	for {
		if n.expansion != nil {
			if v, ok := n.expansion.Next(); ok {
				return n.track(v), v, true
			}
			n.expansion = nil
		}
		v, ok := n.getFn()
		if !ok {
			return 0, nil, false
		}
		if !n.iterableInput {
			return n.track(v), v, true
		}
		it, err := label.ToIterator(v)
		if err != nil {
			n.l.With("item", fmt.Sprintf("%v", v)).Errorln("dropping non-iterable input:", err)
			continue
		}
		n.expansion = it
	}
}

// get is the base of the fetch chain.
func (n *Node) get() (interface{}, bool) {
	return n.queue.Get()
}

func (n *Node) track(item interface{}) int64 {
	n.inflightMu.Lock()
	defer n.inflightMu.Unlock()
	n.inflightSeq++
	n.inflight[n.inflightSeq] = item
	return n.inflightSeq
}

func (n *Node) untrack(seq int64) {
	n.inflightMu.Lock()
	defer n.inflightMu.Unlock()
	delete(n.inflight, seq)
}

// processOne runs the transform and emit stages for one item.  Anything
// unexpected escaping them is logged with full context and the worker moves
// on; one failing item never kills a worker.
func (n *Node) processOne(seq int64, item interface{}, l log.Logger) {
	defer n.untrack(seq)
	defer func() {
		if r := recover(); r != nil {
			l.With("item", fmt.Sprintf("%v", item)).
				With("stack", string(debug.Stack())).
				Errorf("unexpected error in worker loop, continuing: %v", r)
		}
	}()

	result := n.procFn(item)
	if err := n.putFn(result); err != nil {
		l.With("item", fmt.Sprintf("%v", item)).Errorln("emit failed:", err)
	}
	atomic.AddUint64(&n.processed, 1)
}

// process is the base of the transform chain: the user function under the
// per-call timeout, retried with exponential backoff and jitter.  Exhausted
// retries fold the failure into a ProcessingError, which is returned as if
// it were the result.
func (n *Node) process(data interface{}) interface{} {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = n.retryInitial
	b.MaxInterval = n.retryMax
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	var (
		out     interface{}
		attempt int
	)
	op := func() error {
		attempt++
		v, err := n.apply(data)
		if err != nil {
			n.l.With("attempt", attempt).With("item", fmt.Sprintf("%v", data)).
				Warnf("transform failed: %v", err)
			return err
		}
		out = v
		return nil
	}
	err := backoff.Retry(op, backoff.WithMaxRetries(b, retryAttempts-1))
	if err != nil {
		n.l.With("item", fmt.Sprintf("%v", data)).
			Errorf("transform failed after %d attempts: %v", attempt, err)
		return &ProcessingError{
			Input: data,
			Node:  n.name,
			Cause: err,
			Stack: string(debug.Stack()),
		}
	}
	return out
}

// apply runs one transform call, bounded by the node's timeout when one is
// configured.
func (n *Node) apply(data interface{}) (interface{}, error) {
	if n.timeout <= 0 {
		return n.applyOnce(data)
	}

	type applied struct {
		out interface{}
		err error
	}
	ch := make(chan applied, 1)
	go func() {
		out, err := n.applyOnce(data)
		ch <- applied{out, err}
	}()
	select {
	case r := <-ch:
		return r.out, r.err
	case <-time.After(n.timeout):
		return nil, ErrProcessTimeout
	}
}

// applyOnce converts a transform panic into an error, so a panicking
// transform is retried like a failing one.
func (n *Node) applyOnce(data interface{}) (out interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("transform panic: %v", r)
		}
	}()
	return n.fn.Apply(data)
}

// route is the base of the emit chain: it drops bare skips and forwards
// everything else, sequentially, to each destination whose criteria accepts
// it.  A destination that has already stopped only costs a log line; the
// remaining destinations still receive the value.
func (n *Node) route(data interface{}) error {
	if function.IsSkip(data) {
		n.l.Debugln("skip sentinel dropped")
		return nil
	}
	for _, d := range n.destinations {
		if !d.criteria(n, data) {
			continue
		}
		if err := d.node.Put(data); err != nil {
			n.l.With("destination", d.node.name).Warnln("forward failed:", err)
		}
	}
	return nil
}

// NodeStats is a read-only snapshot of a node's queue and pool, the window
// the monitoring layer sees.
type NodeStats struct {
	Name         string
	QueueLen     int
	QueueCap     int
	InFlight     int
	Workers      int
	AliveWorkers int
	Processed    uint64
	Running      bool
}

// Stats snapshots the node.  Observers cannot mutate node state through it.
func (n *Node) Stats() NodeStats {
	n.inflightMu.Lock()
	inflight := len(n.inflight)
	n.inflightMu.Unlock()

	return NodeStats{
		Name:         n.name,
		QueueLen:     n.queue.Len(),
		QueueCap:     n.queue.Cap(),
		InFlight:     inflight,
		Workers:      n.workerNum,
		AliveWorkers: int(atomic.LoadInt32(&n.aliveWorkers)),
		Processed:    atomic.LoadUint64(&n.processed),
		Running:      n.Running(),
	}
}
