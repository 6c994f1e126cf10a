package omit

import (
	"github.com/compose/dataflow/function"
)

func init() {
	function.Add(
		"omit",
		func() function.Function {
			return &Omitter{}
		},
	)
}

// Omitter drops the configured fields from map payloads.  Payloads that are
// not maps pass through untouched.
type Omitter struct {
	Fields []string `json:"fields"`
}

func (o *Omitter) Apply(data interface{}) (interface{}, error) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return data, nil
	}
	for _, k := range o.Fields {
		delete(m, k)
	}
	return m, nil
}
