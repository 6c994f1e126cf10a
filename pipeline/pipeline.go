package pipeline

// A Pipeline is a linear chain over a Graph: each node routes to the next.
// The final node is the chain's sink and must be built WithNoOutput, the
// same rule every other terminal node follows.
type Pipeline struct {
	*Graph
}

// NewPipeline chains nodes in the order given.
func NewPipeline(name string, nodes ...*Node) (*Pipeline, error) {
	if len(nodes) == 0 {
		return nil, ValidationError{Name: name, Reason: "pipeline needs at least one node"}
	}
	g := NewGraph(name)
	if err := g.Add(nodes...); err != nil {
		return nil, err
	}
	for i := 1; i < len(nodes); i++ {
		nodes[i-1].SetDestination(nodes[i])
	}
	return &Pipeline{Graph: g}, nil
}

// Head returns the first node of the chain, the one fed from outside.
func (p *Pipeline) Head() *Node {
	return p.nodes[p.order[0]]
}

// Tail returns the final node of the chain.
func (p *Pipeline) Tail() *Node {
	return p.nodes[p.order[len(p.order)-1]]
}

// Put feeds one item into the head of the chain, blocking while the head's
// queue is at capacity.
func (p *Pipeline) Put(data interface{}) error {
	return p.Head().Put(data)
}
