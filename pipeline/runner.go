package pipeline

import (
	"context"
	"sync"
	"time"

	uuid "github.com/nu7hatch/gouuid"

	"github.com/compose/dataflow/events"
	"github.com/compose/dataflow/label"
	"github.com/compose/dataflow/log"
)

// A Runner drives a Group for the lifetime of a process.  It brings the
// group up, reports lifecycle changes, per-node metrics and processing
// failures on its event channel, and drains everything once Stop is called.
type Runner struct {
	group         Group
	eventCh       chan events.Event
	emitter       events.Emitter
	metricsTicker *time.Ticker
	interval      time.Duration
	version       string
	id            string
	done          chan struct{}
	wg            sync.WaitGroup
	stopOnce      sync.Once
}

// NewRunner wires a group to an event sink.  An interval of zero disables
// the periodic metrics events; boot, exit and error events are always
// reported.
func NewRunner(g Group, emit events.EmitFunc, interval time.Duration, version string) *Runner {
	eventCh := make(chan events.Event, 10)
	var id string
	if u, err := uuid.NewV4(); err == nil {
		id = u.String()
	}
	return &Runner{
		group:    g,
		eventCh:  eventCh,
		emitter:  events.NewEmitter(eventCh, emit),
		interval: interval,
		version:  version,
		id:       id,
		done:     make(chan struct{}),
	}
}

// Run starts the event emitter, decorates the group's nodes with failure
// reporting, brings the group up, and blocks until Stop is called.  It then
// drains the group, reports the final metrics and the exit event, and shuts
// the emitter down, so when Run returns everything accepted before Stop has
// been processed.  The returned error is the group's validation failure, if
// any.
func (r *Runner) Run() error {
	r.emitter.Start()
	r.installErrorEvents()
	if err := r.group.Start(); err != nil {
		r.emitter.Stop()
		return err
	}
	r.sendEvent(events.NewBootEvent(time.Now().Unix(), r.id, r.version, r.endpoints()))
	if r.interval > 0 {
		r.metricsTicker = time.NewTicker(r.interval)
		r.wg.Add(1)
		go r.gatherMetrics()
	}
	<-r.done

	if r.metricsTicker != nil {
		r.metricsTicker.Stop()
	}
	r.wg.Wait()
	r.group.Stop()
	r.emitMetrics()
	r.sendEvent(events.NewExitEvent(time.Now().Unix(), r.id, r.version, r.endpoints()))
	r.emitter.Stop()
	return nil
}

// RunContext is Run with the context's cancellation standing in for Stop,
// for embedding a runner under an outside lifecycle.
func (r *Runner) RunContext(ctx context.Context) error {
	finished := make(chan struct{})
	defer close(finished)
	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-finished:
		}
	}()
	return r.Run()
}

// Stop signals Run to drain everything and return.  It is safe to call more
// than once and at any time relative to Run; the teardown itself runs on
// Run's goroutine.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		close(r.done)
	})
}

// installErrorEvents decorates every node's emit stage to report failures
// on the event channel.  Failures travel as values, bare or labelled, and
// keep flowing downstream after being reported.
func (r *Runner) installErrorEvents() {
	for _, n := range r.group.Nodes() {
		node := n
		err := node.addPutEntry(func(inner PutFunc) PutFunc {
			return func(v interface{}) error {
				payload := v
				if d, ok := label.Unwrap(v); ok {
					payload = d.Payload
				}
				if perr, ok := AsProcessingError(payload); ok {
					r.sendEvent(events.NewErrorEvent(time.Now().Unix(), node.Name(), perr.Input, perr.Cause.Error()))
				}
				return inner(v)
			}
		}, rankObserver)
		if err != nil {
			log.With("name", node.Name()).Warnln("cannot report failures:", err)
		}
	}
}

func (r *Runner) gatherMetrics() {
	defer r.wg.Done()
	for {
		select {
		case <-r.done:
			return
		case <-r.metricsTicker.C:
			r.emitMetrics()
		}
	}
}

func (r *Runner) emitMetrics() {
	ts := time.Now().Unix()
	for _, s := range r.group.Stats() {
		r.sendEvent(events.NewMetricsEvent(ts, s.Name, events.NodeMetrics{
			QueueLen:  s.QueueLen,
			QueueCap:  s.QueueCap,
			InFlight:  s.InFlight,
			Workers:   s.Workers,
			Processed: s.Processed,
		}))
	}
}

// sendEvent never blocks a worker on a slow event sink.
func (r *Runner) sendEvent(e events.Event) {
	select {
	case r.eventCh <- e:
	default:
		log.Warnln("event channel full, dropping event:", e.String())
	}
}

// endpoints maps node names to their transform names, the group signature
// reported in boot and exit events.
func (r *Runner) endpoints() map[string]string {
	m := map[string]string{}
	for _, n := range r.group.Nodes() {
		m[n.Name()] = n.FunctionName()
	}
	return m
}
