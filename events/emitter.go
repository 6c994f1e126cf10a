package events

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"net/http"
	"sync"
	"time"

	"github.com/compose/dataflow/log"
)

// Emitter types are used by a dataflow group to consume events from its event
// channel and process them.
// Start() will start the emitter and begin consuming events
// Stop() stops the event loop and releases any resources.  Stop is expected to
// shut down the process cleanly, the calling process will block until Stop()
// returns
type Emitter interface {
	Start()
	Stop()
}

// emitter is the implementation of Emitter
type emitter struct {
	listenChan chan Event
	emit       EmitFunc
	stop       chan struct{}
	wg         *sync.WaitGroup
	started    bool
}

// EmitFunc is a function that takes an Event as input and emits it
type EmitFunc func(Event) error

// NewEmitter creates a new emitter that will listen on the listen channel and
// use the emit EmitFunc to process events
func NewEmitter(listen chan Event, emit EmitFunc) Emitter {
	return &emitter{
		listenChan: listen,
		emit:       emit,
		stop:       make(chan struct{}),
		wg:         &sync.WaitGroup{},
		started:    false,
	}
}

// Start the emitter
func (e *emitter) Start() {
	if !e.started {
		e.started = true
		go e.startEventListener()
	}
}

// Stop sends a stop signal and waits for the inflight posts to complete before
// exiting.  Events already sitting in the listen channel are still emitted,
// so an exit event sent just before Stop is not lost.
func (e *emitter) Stop() {
	e.stop <- struct{}{}
	e.wg.Wait()
	e.started = false
}

func (e *emitter) startEventListener() {
	for {
		select {
		case <-e.stop:
			e.drain()
			return
		case event := <-e.listenChan:
			e.wg.Add(1)
			go func(event Event) {
				defer e.wg.Done()
				err := e.emit(event)
				if err != nil {
					log.Errorln(err)
				}
			}(event)
		case <-time.After(100 * time.Millisecond):
			continue
			// noop
		}
	}
}

func (e *emitter) drain() {
	for {
		select {
		case event := <-e.listenChan:
			e.wg.Add(1)
			go func(event Event) {
				defer e.wg.Done()
				err := e.emit(event)
				if err != nil {
					log.Errorln(err)
				}
			}(event)
		default:
			return
		}
	}
}

// HTTPPostEmitter listens on the event channel and posts the events to an http
// server.  Events are serialized into json, and sent via a POST request to the
// given uri.  http errors are logged as warnings to the console, and won't
// stop the Emitter
func HTTPPostEmitter(uri, key, pid string) EmitFunc {
	return EmitFunc(func(event Event) error {
		ba, err := event.Emit()
		if err != nil {
			return err
		}

		req, err := http.NewRequest("POST", uri, bytes.NewBuffer(ba))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if len(pid) > 0 && len(key) > 0 {
			req.SetBasicAuth(pid, key)
		}
		cli := &http.Client{}
		resp, err := cli.Do(req)

		if err != nil {
			return err
		}
		_, err = ioutil.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != 200 && resp.StatusCode != 201 {
			return fmt.Errorf("http error code, expected 200 or 201, got %d, (%s)", resp.StatusCode, ba)
		}
		return nil
	})
}

// NoopEmitter consumes the events from the listening channel and does nothing
// with them.  this is useful for cli utilities that dump output to stdout in
// any case, and don't want to clutter the program's output with metrics
func NoopEmitter() EmitFunc {
	return EmitFunc(func(event Event) error { return nil })
}

// LogEmitter listens on the event channel and emits the event through the log
// package, eg.
//   INFO[0000] boot map[count:wordcount split:goja]
//   INFO[0005] metrics split queue: 3/10 in flight: 4 processed: 120
//   INFO[0009] exit map[count:wordcount split:goja]
func LogEmitter() EmitFunc {
	return EmitFunc(func(event Event) error {
		log.Infoln(event.String())
		return nil
	})
}

// JSONLogEmitter listens on the event channel and emits the serialized event
// through the log package, eg.
//   INFO[0005] {"ts":1436889121,"name":"metrics","node":"split","queue_len":3,"queue_cap":10,"in_flight":4,"workers":4,"processed":120}
func JSONLogEmitter() EmitFunc {
	return EmitFunc(func(event Event) error {
		j, err := event.Emit()
		if err != nil {
			return err
		}
		log.Infoln(string(j))
		return nil
	})
}
