package pipeline

// A LabelPipeline is a Pipeline whose boundary nodes carry a pair of
// labelling decorators: labelIn wraps the head's fetch stage and labelOut
// wraps the tail's emit stage.  Between the two, every node forwards labels
// transparently, so the pair can correlate what left the head with what
// arrived at the tail.
//
// The decorators sit outside any user-registered ones on the same nodes,
// whatever the registration order.  Either may be nil.
type LabelPipeline struct {
	*Pipeline
}

// NewLabelPipeline chains nodes like NewPipeline and installs the labelling
// pair on the boundary nodes.
func NewLabelPipeline(name string, labelIn GetDecorator, labelOut PutDecorator, nodes ...*Node) (*LabelPipeline, error) {
	p, err := NewPipeline(name, nodes...)
	if err != nil {
		return nil, err
	}
	if labelIn != nil {
		if err := p.Head().addGetEntry(labelIn, rankLabel); err != nil {
			return nil, err
		}
	}
	if labelOut != nil {
		if err := p.Tail().addPutEntry(labelOut, rankLabel); err != nil {
			return nil, err
		}
	}
	return &LabelPipeline{Pipeline: p}, nil
}
