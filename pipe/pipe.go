// Copyright 2025 The Dataflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipe provides the bounded transport dataflow nodes communicate
// over: a FIFO queue carrying payloads and, once the owning node begins
// shutdown, one stop token per worker.
package pipe

import (
	"errors"
	"sync"
)

var (
	// ErrQueueStopped is returned by Put once Close has been called; late
	// producers fail fast instead of deadlocking against a terminating
	// worker pool.
	ErrQueueStopped = errors.New("queue has been stopped")
)

// StopToken is the internal sentinel that ends exactly one worker's loop.
// It is distinguished from payloads by type, and is never visible outside
// the queue: Get reports it as ok=false.
type StopToken struct{}

// Queue is a bounded FIFO over {payload, stop token}.  Put blocks while the
// queue is at capacity, which is how backpressure propagates upstream.  Stop
// tokens are appended after all pending payloads and are exempt from the
// capacity bound, since by then producers are fenced off.
type Queue struct {
	mu       sync.Mutex
	notFull  *sync.Cond
	notEmpty *sync.Cond

	items   []interface{}
	pending int // payloads in items, excluding stop tokens
	size    int
	closed  bool
}

// NewQueue creates a Queue with the given capacity.  Capacities below one
// are clamped to one.
func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	q := &Queue{size: size}
	q.notFull = sync.NewCond(&q.mu)
	q.notEmpty = sync.NewCond(&q.mu)
	return q
}

// Put enqueues one payload, blocking the caller while the queue is at
// capacity.  It returns ErrQueueStopped if Close has been called, including
// when the call was already blocked waiting for a slot when Close arrived,
// so a payload is never deposited behind a stop token.
func (q *Queue) Put(data interface{}) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for q.pending >= q.size && !q.closed {
		q.notFull.Wait()
	}
	if q.closed {
		return ErrQueueStopped
	}
	q.items = append(q.items, data)
	q.pending++
	q.notEmpty.Signal()
	return nil
}

// Get dequeues the next item, blocking until a payload or stop token is
// available.  It returns ok=false when the dequeued item is a stop token;
// the calling worker must exit its loop.
func (q *Queue) Get() (interface{}, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 {
		q.notEmpty.Wait()
	}
	v := q.items[0]
	q.items = q.items[1:]
	if _, ok := v.(StopToken); ok {
		return nil, false
	}
	q.pending--
	q.notFull.Signal()
	return v, true
}

// Close marks the queue stopped and appends exactly workers stop tokens
// after any pending payloads, then wakes every blocked producer and
// consumer.  Close never blocks.
func (q *Queue) Close(workers int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.closed = true
	for i := 0; i < workers; i++ {
		q.items = append(q.items, StopToken{})
	}
	q.notEmpty.Broadcast()
	q.notFull.Broadcast()
}

// Len reports the number of payloads waiting in the queue, not counting
// stop tokens.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Cap reports the queue's capacity.
func (q *Queue) Cap() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
