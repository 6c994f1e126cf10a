package events

import (
	"encoding/json"
	"fmt"
)

// Event is an interface that describes data which is produced periodically by
// a running dataflow group.
//
// Events come in multiple kinds. baseEvents are emitted when the group starts
// and stops, metricsEvents are emitted for each node and include a snapshot of
// the node's queue and worker pool.
type Event interface {
	Emit() ([]byte, error)
	String() string
}

// baseEvent is an event that is sent when a group has been started or exited
type baseEvent struct {
	Ts        int64             `json:"ts"`
	Kind      string            `json:"name"`
	ID        string            `json:"id,omitempty"`
	Version   string            `json:"version,omitempty"`
	Endpoints map[string]string `json:"endpoints,omitempty"`
}

// NewBootEvent (surprisingly) creates a new baseEvent
func NewBootEvent(ts int64, id, version string, endpoints map[string]string) Event {
	e := &baseEvent{
		Ts:        ts,
		Kind:      "boot",
		ID:        id,
		Version:   version,
		Endpoints: endpoints,
	}
	return e
}

// NewExitEvent (surprisingly) creates a new baseEvent
func NewExitEvent(ts int64, id, version string, endpoints map[string]string) Event {
	e := &baseEvent{
		Ts:        ts,
		Kind:      "exit",
		ID:        id,
		Version:   version,
		Endpoints: endpoints,
	}
	return e
}

// Emit prepares the event to be emitted and marshals the event into a JSON
func (e *baseEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

// String
func (e *baseEvent) String() string {
	return fmt.Sprintf("%s %v", e.Kind, e.Endpoints)
}

// NodeMetrics is a point-in-time snapshot of one node's queue and pool,
// embedded in the metrics event.
type NodeMetrics struct {
	QueueLen  int    `json:"queue_len"`
	QueueCap  int    `json:"queue_cap"`
	InFlight  int    `json:"in_flight"`
	Workers   int    `json:"workers"`
	Processed uint64 `json:"processed"`
}

// metricsEvent is an event used to indicate progress.
type metricsEvent struct {
	Ts   int64  `json:"ts"`
	Kind string `json:"name"`
	Node string `json:"node"`

	NodeMetrics
}

// NewMetricsEvent creates a new metrics event
func NewMetricsEvent(ts int64, node string, m NodeMetrics) Event {
	e := &metricsEvent{
		Ts:          ts,
		Kind:        "metrics",
		Node:        node,
		NodeMetrics: m,
	}
	return e
}

// Emit prepares the event to be emitted and marshalls the event into an json
func (e *metricsEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

func (e *metricsEvent) String() string {
	return fmt.Sprintf("%s %s queue: %d/%d in flight: %d processed: %d",
		e.Kind, e.Node, e.QueueLen, e.QueueCap, e.InFlight, e.Processed)
}

// errorEvent is an event that indicates an error occurred
// during the processing of a node
type errorEvent struct {
	Ts   int64  `json:"ts"`
	Kind string `json:"name"`
	Node string `json:"node"`

	// Record is the item (if any) that was in progress when the error occurred
	Record interface{} `json:"record,omitempty"`

	// Message is the error message as a string
	Message string `json:"message,omitempty"`
}

// NewErrorEvent are events sent to indicate a problem processing on one of the nodes
func NewErrorEvent(ts int64, node string, record interface{}, message string) Event {
	e := &errorEvent{
		Ts:      ts,
		Kind:    "error",
		Node:    node,
		Record:  record,
		Message: message,
	}
	return e
}

// Emit prepares the event to be emitted and marshalls the event into an json
func (e *errorEvent) Emit() ([]byte, error) {
	return json.Marshal(e)
}

// String
func (e *errorEvent) String() string {
	msg := fmt.Sprintf("%s", e.Kind)
	msg += fmt.Sprintf(" record: %v, message: %s", e.Record, e.Message)
	return msg
}
