package pipeline

// A CyclePipeline is a Pipeline that tolerates feedback edges.  Wire the
// feedback with SetDestination after construction and before Start.  Start
// brings nodes up in declaration order, since with a cycle no topological
// order exists.
//
// Stop drains in the same declaration order.  An item riding a feedback
// edge after its destination has stopped is dropped and logged by the
// forwarding node; callers that need every iteration accounted for should
// quiesce the flow before stopping.
type CyclePipeline struct {
	*Pipeline
}

// NewCyclePipeline chains nodes linearly, like NewPipeline.
func NewCyclePipeline(name string, nodes ...*Node) (*CyclePipeline, error) {
	p, err := NewPipeline(name, nodes...)
	if err != nil {
		return nil, err
	}
	return &CyclePipeline{Pipeline: p}, nil
}

// Start validates every member and brings them up in declaration order.
func (c *CyclePipeline) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return ValidationError{Name: c.name, Reason: "group already running"}
	}
	if err := c.validate(); err != nil {
		c.l.Errorln("validation failed:", err)
		return err
	}
	return c.startNodes(append([]string(nil), c.order...))
}

// Validate checks the members without demanding acyclic wiring, since a
// feedback edge is the whole point here.
func (c *CyclePipeline) Validate() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validate()
}
