package function

import "fmt"

// Function has a single defined function to serve the purpose of applying
// logic to a payload in order to return a payload.  One instance is shared
// by every worker in a node's pool, so implementations must be safe for
// concurrent use.
type Function interface {
	Apply(data interface{}) (interface{}, error)
}

type skipSentinel struct{}

func (skipSentinel) String() string {
	return "<skip>"
}

// Skip is the sentinel result a Function returns to produce no downstream
// emission for the current payload.  It is filtered at the node boundary and
// never reaches a destination queue.
var Skip = skipSentinel{}

// IsSkip reports whether v is the skip sentinel.
func IsSkip(v interface{}) bool {
	_, ok := v.(skipSentinel)
	return ok
}

// Func adapts a plain func to the Function interface.
type Func func(data interface{}) (interface{}, error)

// Apply fulfills the Function interface.
func (f Func) Apply(data interface{}) (interface{}, error) {
	return f(data)
}

var _ fmt.Stringer = Skip
