package pipeline

import (
	"errors"
	"fmt"
)

// ErrProcessTimeout is the retryable cause recorded when a single transform
// call outlives the node's configured timeout.
var ErrProcessTimeout = errors.New("process timed out")

// A ValidationError is fatal and startup-only: wiring that contradicts the
// no-output flag, decorator registration after start, or a cycle found while
// ordering a graph.  It always surfaces before any worker is spawned.
type ValidationError struct {
	Name   string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Name, e.Reason)
}

// A ProcessingError is the structured value a transform failure becomes once
// its retries are exhausted.  It travels downstream through the same queues
// as successful results; consumers branch on it with a type assertion, it is
// never a control-flow signal.
type ProcessingError struct {
	// Input is the original payload the transform failed on.
	Input interface{}
	// Node is the name of the node the failure happened in.
	Node string
	// Cause is the last error the transform returned.
	Cause error
	// Stack is the formatted trace captured when retries ran out.
	Stack string
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("processing failed in node %s: %s (input: %v)", e.Node, e.Cause, e.Input)
}

// Unwrap exposes the underlying cause to errors.Is/As.
func (e *ProcessingError) Unwrap() error {
	return e.Cause
}

// AsProcessingError reports whether a routed value is a converted failure.
// Downstream consumers use it to branch between results and errors.
func AsProcessingError(v interface{}) (*ProcessingError, bool) {
	pe, ok := v.(*ProcessingError)
	return pe, ok
}
