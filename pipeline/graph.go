package pipeline

import (
	"fmt"
	"sort"
)

// A Graph is a general dataflow topology: any set of wired nodes, as long
// as the wiring is acyclic.  Start orders the members topologically and
// brings sources up first, so by the time data flows every destination is
// already consuming.
type Graph struct {
	group
}

// NewGraph creates an empty named graph.  Wire nodes with SetDestination
// and register them with Add before Start.
func NewGraph(name string) *Graph {
	return &Graph{group: newGroup(name)}
}

// Start validates every member, computes the topological start order, and
// brings the graph up.  A cycle is a construction mistake, not a runtime
// condition, and fails the whole start.
func (g *Graph) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return ValidationError{Name: g.name, Reason: "group already running"}
	}
	if err := g.validate(); err != nil {
		g.l.Errorln("validation failed:", err)
		return err
	}
	order, err := g.topoOrder()
	if err != nil {
		g.l.Errorln("validation failed:", err)
		return err
	}
	return g.startNodes(order)
}

// Validate checks the graph the way Start does, without starting anything:
// every member must validate, every edge must stay inside the group, and
// the wiring must be acyclic.
func (g *Graph) Validate() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.validate(); err != nil {
		return err
	}
	_, err := g.topoOrder()
	return err
}

// topoOrder runs Kahn's algorithm over the member edges.  The ready queue
// is seeded and served in insertion order, which keeps the start order
// stable across runs of the same construction.
func (g *Graph) topoOrder() ([]string, error) {
	indeg := make(map[string]int, len(g.order))
	for _, name := range g.order {
		indeg[name] = 0
	}
	for _, name := range g.order {
		for _, d := range g.nodes[name].destinations {
			indeg[d.node.name]++
		}
	}

	var queue []string
	for _, name := range g.order {
		if indeg[name] == 0 {
			queue = append(queue, name)
		}
	}

	order := make([]string, 0, len(g.order))
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		order = append(order, name)
		for _, d := range g.nodes[name].destinations {
			indeg[d.node.name]--
			if indeg[d.node.name] == 0 {
				queue = append(queue, d.node.name)
			}
		}
	}

	if len(order) != len(g.order) {
		var remaining []string
		for name, deg := range indeg {
			if deg > 0 {
				remaining = append(remaining, name)
			}
		}
		sort.Strings(remaining)
		return nil, ValidationError{Name: g.name, Reason: fmt.Sprintf("cycle detected among nodes %v", remaining)}
	}
	return order, nil
}
