package pipeline

import (
	"reflect"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"

	"github.com/compose/dataflow/function"
)

func TestNewPipelineWiring(t *testing.T) {
	a := mustNode(t, "a", ident)
	b := mustNode(t, "b", ident)
	c := mustNode(t, "c", ident, WithNoOutput())

	p, err := NewPipeline("chain", a, b, c)
	if err != nil {
		t.Fatalf("unexpected NewPipeline error, %s", err)
	}
	if p.Head() != a || p.Tail() != c {
		t.Errorf("wrong boundary nodes, head %s tail %s", p.Head().Name(), p.Tail().Name())
	}
	if got := a.Destinations(); len(got) != 1 || got[0] != b {
		t.Errorf("expected a to route to b, got %v", got)
	}
	if got := b.Destinations(); len(got) != 1 || got[0] != c {
		t.Errorf("expected b to route to c, got %v", got)
	}

	if _, err := NewPipeline("empty"); err == nil {
		t.Errorf("expected error building an empty pipeline, got none")
	}
}

func TestPipelineTailMustBeSink(t *testing.T) {
	defer leaktest.Check(t)()

	a := mustNode(t, "a", ident)
	b := mustNode(t, "b", ident) // not marked no_output
	p, err := NewPipeline("chain", a, b)
	if err != nil {
		t.Fatalf("unexpected NewPipeline error, %s", err)
	}
	if err := p.Start(); err == nil {
		t.Errorf("expected validation to reject an unmarked tail, got no error")
	}
}

func TestPipelineFlow(t *testing.T) {
	defer leaktest.Check(t)()

	sink := &collector{}
	inc := mustNode(t, "inc", function.Func(func(data interface{}) (interface{}, error) {
		return data.(int) + 1, nil
	}), WithWorkers(3))
	double := mustNode(t, "double", function.Func(func(data interface{}) (interface{}, error) {
		return data.(int) * 2, nil
	}), WithWorkers(3))
	out := mustNode(t, "out", sink, WithNoOutput())

	p, err := NewPipeline("math", inc, double, out)
	if err != nil {
		t.Fatalf("unexpected NewPipeline error, %s", err)
	}
	if err := p.Start(); err != nil {
		t.Fatalf("unexpected Start error, %s", err)
	}

	want := []int{}
	for i := 1; i <= 25; i++ {
		p.Put(i)
		want = append(want, (i+1)*2)
	}
	p.Stop()

	if got := sortedInts(sink.snapshot()); !reflect.DeepEqual(got, want) {
		t.Errorf("wrong results, expected %v, got %v", want, got)
	}
}

func TestCyclePipelineCountdown(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	var applies int64
	dec := mustNode(t, "dec", function.Func(func(data interface{}) (interface{}, error) {
		atomic.AddInt64(&applies, 1)
		return data.(int) - 1, nil
	}), WithWorkers(2))
	sink := &collector{}
	// the linear edge dec->out inherits this criteria
	out := mustNode(t, "out", sink, WithNoOutput(),
		WithCriteria(func(_ *Node, data interface{}) bool { return data.(int) <= 0 }))

	c, err := NewCyclePipeline("countdown", dec, out)
	if err != nil {
		t.Fatalf("unexpected NewCyclePipeline error, %s", err)
	}
	// the feedback edge that makes this a cycle
	dec.SetDestination(dec, func(_ *Node, data interface{}) bool { return data.(int) > 0 })

	if err := c.Start(); err != nil {
		t.Fatalf("a declared cycle must start, got error %s", err)
	}

	c.Put(3)
	waitFor(t, 5*time.Second, "the countdown to reach the sink", func() bool {
		return sink.len() == 1
	})
	c.Stop()

	if got := sink.snapshot(); got[0] != 0 {
		t.Errorf("expected the countdown to deliver 0, got %v", got[0])
	}
	if n := atomic.LoadInt64(&applies); n != 3 {
		t.Errorf("expected 3 trips through the loop, got %d", n)
	}
}

func TestCyclePipelineStartsInDeclarationOrder(t *testing.T) {
	defer leaktest.Check(t)()

	a := mustNode(t, "a", ident)
	b := mustNode(t, "b", ident)
	a.SetDestination(b)
	b.SetDestination(a) // pure loop, no topological order exists

	c, err := NewCyclePipeline("loop", a, b)
	if err != nil {
		t.Fatalf("unexpected NewCyclePipeline error, %s", err)
	}
	// NewCyclePipeline chained a->b; the b->a edge above closes the loop
	if err := c.Start(); err != nil {
		t.Fatalf("unexpected Start error, %s", err)
	}
	defer c.Stop()

	if !reflect.DeepEqual(c.startOrder, []string{"a", "b"}) {
		t.Errorf("expected declaration start order, got %v", c.startOrder)
	}
}
