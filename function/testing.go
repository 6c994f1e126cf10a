package function

import (
	"sync/atomic"

	"github.com/compose/dataflow/log"
)

var (
	_ Function = &Mock{}
)

// Mock counts its applications and returns the configured error, for use in
// tests.  The count is atomic because a node's worker pool applies the same
// instance concurrently.
type Mock struct {
	ApplyCount int64
	Err        error
}

// Apply fulfills the Function interface for use in tests.
func (m *Mock) Apply(data interface{}) (interface{}, error) {
	n := atomic.AddInt64(&m.ApplyCount, 1)
	log.With("apply_count", n).With("err", m.Err).Debugln("applying...")
	return data, m.Err
}

// Applied returns the number of times Apply has been called.
func (m *Mock) Applied() int64 {
	return atomic.LoadInt64(&m.ApplyCount)
}
