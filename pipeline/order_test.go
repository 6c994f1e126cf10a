package pipeline

import (
	"math/rand"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"

	"github.com/compose/dataflow/function"
)

// ordered captures what an OrderPipeline emits, in emission order.
type ordered struct {
	mu    sync.Mutex
	items []interface{}
}

func (o *ordered) emit(v interface{}) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, v)
	return nil
}

func (o *ordered) snapshot() []interface{} {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]interface{}(nil), o.items...)
}

func (o *ordered) len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.items)
}

func TestOrderPipelineRestoresArrivalOrder(t *testing.T) {
	defer leaktest.CheckTimeout(t, 20*time.Second)()

	jitter := function.Func(func(data interface{}) (interface{}, error) {
		time.Sleep(time.Duration(rand.Intn(5)) * time.Millisecond)
		return data.(int) * 3, nil
	})
	head := mustNode(t, "head", ident, WithWorkers(4))
	work := mustNode(t, "work", jitter, WithWorkers(8))
	tail := mustNode(t, "tail", ident, WithNoOutput(), WithWorkers(4))

	out := &ordered{}
	op, err := NewOrderPipeline("ordered", out.emit, head, work, tail)
	if err != nil {
		t.Fatalf("unexpected NewOrderPipeline error, %s", err)
	}
	if err := op.Start(); err != nil {
		t.Fatalf("unexpected Start error, %s", err)
	}

	want := []interface{}{}
	for i := 0; i < 50; i++ {
		op.Put(i)
		want = append(want, i*3)
	}
	waitFor(t, 15*time.Second, "all ordered emissions", func() bool { return out.len() == 50 })
	op.Stop()

	// workers finish out of order; emission must not
	if got := out.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("emission out of order, expected %v, got %v", want, got)
	}
	if op.Buffered() != 0 {
		t.Errorf("expected an empty reorder buffer, %d items still held", op.Buffered())
	}
}

func TestOrderPipelineSkipsDoNotStall(t *testing.T) {
	defer leaktest.CheckTimeout(t, 20*time.Second)()

	dropThirds := function.Func(func(data interface{}) (interface{}, error) {
		if data.(int)%3 == 0 {
			return function.Skip, nil
		}
		return data, nil
	})
	head := mustNode(t, "head", ident, WithWorkers(2))
	work := mustNode(t, "work", dropThirds, WithWorkers(4))
	tail := mustNode(t, "tail", ident, WithNoOutput(), WithWorkers(2))

	out := &ordered{}
	op, err := NewOrderPipeline("gappy", out.emit, head, work, tail)
	if err != nil {
		t.Fatalf("unexpected NewOrderPipeline error, %s", err)
	}
	if err := op.Start(); err != nil {
		t.Fatalf("unexpected Start error, %s", err)
	}

	want := []interface{}{}
	for i := 0; i < 30; i++ {
		op.Put(i)
		if i%3 != 0 {
			want = append(want, i)
		}
	}
	waitFor(t, 15*time.Second, "the surviving emissions", func() bool {
		return out.len() == len(want)
	})
	op.Stop()

	if got := out.snapshot(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected skipped slots to be passed over in order, expected %v, got %v", want, got)
	}
}
