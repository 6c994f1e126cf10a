package pipeline

import (
	"fmt"
	"time"

	"github.com/compose/dataflow/config"
)

// OptionFunc is a function that configures a Node.  Use the WithXxx helpers
// rather than building one by hand.
type OptionFunc func(*Node) error

// WithWorkers sets the size of the node's worker pool.
func WithWorkers(count int) OptionFunc {
	return func(n *Node) error {
		if count < 0 {
			return ValidationError{Name: n.name, Reason: "negative worker count"}
		}
		n.workerNum = count
		return nil
	}
}

// WithQueueSize bounds the node's input queue.  Producers block once the
// queue holds that many items.
func WithQueueSize(size int) OptionFunc {
	return func(n *Node) error {
		if size < 0 {
			return ValidationError{Name: n.name, Reason: "negative queue size"}
		}
		n.queueSize = size
		return nil
	}
}

// WithTimeout bounds each transform call.  A call exceeding it fails with
// ErrProcessTimeout and is retried like any other failure.  Zero means no
// limit.
func WithTimeout(timeout time.Duration) OptionFunc {
	return func(n *Node) error {
		n.timeout = timeout
		return nil
	}
}

// WithNoOutput marks the node as a sink.  Sinks must not have destinations,
// everything else must.
func WithNoOutput() OptionFunc {
	return func(n *Node) error {
		n.noOutput = true
		return nil
	}
}

// WithIterableInput makes the node flatten each incoming collection and hand
// its elements to the pool one at a time.
func WithIterableInput() OptionFunc {
	return func(n *Node) error {
		n.iterableInput = true
		return nil
	}
}

// WithCriteria sets the node's routing predicate, used by every inbound edge
// that does not carry its own.
func WithCriteria(c Criteria) OptionFunc {
	return func(n *Node) error {
		if c == nil {
			return ValidationError{Name: n.name, Reason: "nil criteria"}
		}
		n.criteria = c
		return nil
	}
}

// WithRetryWait sets the first and the longest backoff interval between
// retry attempts of a failing transform.
func WithRetryWait(initial, max time.Duration) OptionFunc {
	return func(n *Node) error {
		if initial < 0 || max < 0 {
			return ValidationError{Name: n.name, Reason: "negative retry wait"}
		}
		n.retryInitial = initial
		n.retryMax = max
		return nil
	}
}

// WithFunctionName overrides the transform name reported by FunctionName,
// which otherwise is the transform's Go type.
func WithFunctionName(name string) OptionFunc {
	return func(n *Node) error {
		n.fnName = name
		return nil
	}
}

// WithConfig applies the node settings from a loaded configuration file.
// Explicit options win over the file regardless of ordering, since zero
// values from the file never overwrite.
func WithConfig(c config.Node) OptionFunc {
	return func(n *Node) error {
		if n.workerNum == 0 {
			n.workerNum = c.Workers
		}
		if n.queueSize == 0 {
			n.queueSize = c.QueueSize
		}
		if err := configDuration(&n.timeout, c.Timeout, "timeout", n.name); err != nil {
			return err
		}
		if err := configDuration(&n.retryInitial, c.RetryInitial, "retry_initial", n.name); err != nil {
			return err
		}
		return configDuration(&n.retryMax, c.RetryMax, "retry_max", n.name)
	}
}

func configDuration(dst *time.Duration, raw, field, node string) error {
	if *dst != 0 || raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return ValidationError{Name: node, Reason: fmt.Sprintf("bad %s %q: %v", field, raw, err)}
	}
	*dst = d
	return nil
}
