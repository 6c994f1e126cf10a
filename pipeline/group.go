package pipeline

import (
	"fmt"
	"sync"

	"github.com/compose/dataflow/log"
)

// Group is the surface shared by every runnable node collection.  Start is
// atomic: either every member node comes up, or none does and the error says
// which validation failed.  Validate runs the same checks without starting
// anything.
type Group interface {
	Name() string
	Node(name string) (*Node, bool)
	Nodes() []*Node
	Start() error
	Stop()
	Running() bool
	Validate() error
	Stats() []NodeStats
}

// group is the machinery shared by Graph and the pipeline variants: a node
// registry in insertion order, validation of every node before any starts,
// and ordered start and stop.
type group struct {
	name       string
	nodes      map[string]*Node
	order      []string
	startOrder []string
	running    bool
	mu         sync.Mutex
	l          log.Logger
}

func newGroup(name string) group {
	return group{
		name:  name,
		nodes: map[string]*Node{},
		l:     log.With("group", name),
	}
}

// Name returns the group's name.
func (g *group) Name() string {
	return g.name
}

// Add registers nodes with the group.  Names must be unique within it.
func (g *group) Add(nodes ...*Node) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return ValidationError{Name: g.name, Reason: "cannot add nodes to a running group"}
	}
	for _, n := range nodes {
		if _, ok := g.nodes[n.name]; ok {
			return ValidationError{Name: g.name, Reason: fmt.Sprintf("duplicate node name %s", n.name)}
		}
		g.nodes[n.name] = n
		g.order = append(g.order, n.name)
	}
	return nil
}

// Node looks up a member by name.
func (g *group) Node(name string) (*Node, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	n, ok := g.nodes[name]
	return n, ok
}

// Nodes returns the members in the order they were added.
func (g *group) Nodes() []*Node {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Node, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name])
	}
	return out
}

// Running reports whether the group has started and not yet stopped.
func (g *group) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Stats snapshots every member node, in the order they were added.
func (g *group) Stats() []NodeStats {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]NodeStats, 0, len(g.order))
	for _, name := range g.order {
		out = append(out, g.nodes[name].Stats())
	}
	return out
}

// validate checks every member before any member starts, so a failing group
// starts nothing.  Edges may not leave the group: a destination outside it
// would silently never be started or stopped with the rest.
func (g *group) validate() error {
	if len(g.nodes) == 0 {
		return ValidationError{Name: g.name, Reason: "group has no nodes"}
	}
	for _, name := range g.order {
		n := g.nodes[name]
		if n.hasStarted() {
			return ValidationError{Name: g.name, Reason: fmt.Sprintf("node %s already started", name)}
		}
		if err := n.Validate(); err != nil {
			return err
		}
		for _, d := range n.destinations {
			if _, ok := g.nodes[d.node.name]; !ok {
				return ValidationError{Name: g.name, Reason: fmt.Sprintf("node %s routes to %s, which is not in the group", name, d.node.name)}
			}
		}
	}
	return nil
}

// startNodes brings members up in the given order.  A node failing to start
// rolls the already-started ones back down, so the group never ends up half
// running.  Callers hold g.mu.
func (g *group) startNodes(order []string) error {
	var started []string
	for _, name := range order {
		if _, err := g.nodes[name].Start(); err != nil {
			for _, s := range started {
				g.nodes[s].End()
			}
			return err
		}
		started = append(started, name)
	}
	g.startOrder = order
	g.running = true
	g.l.Infof("group started, %d nodes", len(order))
	return nil
}

// Stop drains members in start order.  Upstream nodes drain first, so
// everything they forward still reaches a running destination.
func (g *group) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	order := g.startOrder
	g.mu.Unlock()

	g.l.Infoln("group stopping...")
	for _, name := range order {
		g.nodes[name].End()
	}
	g.l.Infoln("group stopped")
}
