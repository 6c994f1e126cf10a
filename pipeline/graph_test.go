package pipeline

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/fortytw2/leaktest"

	"github.com/compose/dataflow/function"
)

// position returns the index of name in order, or -1.
func position(order []string, name string) int {
	for i, n := range order {
		if n == name {
			return i
		}
	}
	return -1
}

func TestGraphTopologicalStart(t *testing.T) {
	defer leaktest.Check(t)()

	a := mustNode(t, "a", ident)
	b := mustNode(t, "b", ident)
	c := mustNode(t, "c", ident)
	d := mustNode(t, "d", ident, WithNoOutput())
	a.SetDestination(b)
	a.SetDestination(c)
	b.SetDestination(d)
	c.SetDestination(d)

	g := NewGraph("diamond")
	// deliberately not in dependency order
	if err := g.Add(d, c, b, a); err != nil {
		t.Fatalf("unexpected Add error, %s", err)
	}
	if err := g.Start(); err != nil {
		t.Fatalf("unexpected Start error, %s", err)
	}
	defer g.Stop()

	order := g.startOrder
	if len(order) != 4 {
		t.Fatalf("expected all 4 nodes in the start order, got %v", order)
	}
	if position(order, "a") > position(order, "b") || position(order, "a") > position(order, "c") {
		t.Errorf("source must start before its destinations, got %v", order)
	}
	if position(order, "d") < position(order, "b") || position(order, "d") < position(order, "c") {
		t.Errorf("join must start after its sources, got %v", order)
	}
	if !g.Running() {
		t.Errorf("graph should be running after Start")
	}
}

func TestGraphCycleIsFatal(t *testing.T) {
	defer leaktest.Check(t)()

	a := mustNode(t, "a", ident)
	b := mustNode(t, "b", ident)
	c := mustNode(t, "c", ident)
	a.SetDestination(b)
	b.SetDestination(c)
	c.SetDestination(a)

	g := NewGraph("loop")
	g.Add(a, b, c)
	err := g.Start()
	if err == nil {
		t.Fatal("expected a cycle to fail Start, got no error")
	}
	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected a ValidationError, got %T", err)
	}
	if !strings.Contains(verr.Reason, "cycle") {
		t.Errorf("expected the error to name the cycle, got %q", verr.Reason)
	}
	for _, name := range []string{"a", "b", "c"} {
		if !strings.Contains(verr.Reason, name) {
			t.Errorf("expected the error to list node %s, got %q", name, verr.Reason)
		}
	}
	// nothing may have started
	for _, n := range g.Nodes() {
		if n.hasStarted() {
			t.Errorf("node %s started despite the failed validation", n.Name())
		}
	}
}

func TestGraphValidationIsAtomic(t *testing.T) {
	defer leaktest.Check(t)()

	ok1 := mustNode(t, "ok1", ident)
	ok2 := mustNode(t, "ok2", ident, WithNoOutput())
	ok1.SetDestination(ok2)
	bad := mustNode(t, "bad", ident) // neither destinations nor no_output

	g := NewGraph("partial")
	g.Add(ok1, ok2, bad)
	if err := g.Start(); err == nil {
		t.Fatal("expected Start to fail validation, got no error")
	}
	for _, n := range g.Nodes() {
		if n.hasStarted() {
			t.Errorf("node %s started despite the failed validation", n.Name())
		}
	}
}

func TestGraphRejectsEdgeOutsideGroup(t *testing.T) {
	inside := mustNode(t, "inside", ident)
	outside := mustNode(t, "outside", ident, WithNoOutput())
	inside.SetDestination(outside)

	g := NewGraph("escape")
	g.Add(inside)
	err := g.Start()
	if err == nil {
		t.Fatal("expected an edge leaving the group to fail Start")
	}
	if !strings.Contains(err.Error(), "outside") {
		t.Errorf("expected the error to name the missing node, got %q", err)
	}
}

func TestGraphRejectsDuplicateNames(t *testing.T) {
	g := NewGraph("dup")
	if err := g.Add(mustNode(t, "same", ident, WithNoOutput())); err != nil {
		t.Fatalf("unexpected Add error, %s", err)
	}
	if err := g.Add(mustNode(t, "same", ident, WithNoOutput())); err == nil {
		t.Errorf("expected error adding a duplicate name, got none")
	}
}

func TestGraphAddWhileRunning(t *testing.T) {
	defer leaktest.Check(t)()

	g := NewGraph("busy")
	g.Add(mustNode(t, "only", ident, WithNoOutput()))
	if err := g.Start(); err != nil {
		t.Fatalf("unexpected Start error, %s", err)
	}
	defer g.Stop()

	if err := g.Add(mustNode(t, "late", ident, WithNoOutput())); err == nil {
		t.Errorf("expected error adding to a running group, got none")
	}
	if err := g.Start(); err == nil {
		t.Errorf("expected error starting a running group, got none")
	}
}

func TestGraphEndToEnd(t *testing.T) {
	defer leaktest.Check(t)()

	sink := &collector{}
	double := mustNode(t, "double", function.Func(func(data interface{}) (interface{}, error) {
		return data.(int) * 2, nil
	}), WithWorkers(4))
	out := mustNode(t, "out", sink, WithNoOutput(), WithWorkers(2))
	double.SetDestination(out)

	g := NewGraph("e2e")
	g.Add(double, out)
	if err := g.Start(); err != nil {
		t.Fatalf("unexpected Start error, %s", err)
	}

	want := []int{}
	for i := 1; i <= 10; i++ {
		double.Put(i)
		want = append(want, i*2)
	}
	g.Stop()

	if got := sortedInts(sink.snapshot()); !reflect.DeepEqual(got, want) {
		t.Errorf("wrong results, expected %v, got %v", want, got)
	}
	if g.Running() {
		t.Errorf("graph should not be running after Stop")
	}

	stats := g.Stats()
	if len(stats) != 2 || stats[0].Name != "double" || stats[1].Name != "out" {
		t.Errorf("wrong stats order, got %+v", stats)
	}
}

func TestGroupNodeLookup(t *testing.T) {
	a := mustNode(t, "a", ident, WithNoOutput())
	g := NewGraph("lookup")
	g.Add(a)

	if n, ok := g.Node("a"); !ok || n != a {
		t.Errorf("expected to find node a")
	}
	if _, ok := g.Node("zz"); ok {
		t.Errorf("did not expect to find node zz")
	}
}
