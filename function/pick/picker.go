package pick

import (
	"github.com/compose/dataflow/function"
)

func init() {
	function.Add(
		"pick",
		func() function.Function {
			return &picker{}
		},
	)
}

// picker keeps only the configured fields of map payloads, the complement
// of omit.  Payloads that are not maps pass through untouched.
type picker struct {
	Fields []string `json:"fields"`
}

func (p *picker) Apply(data interface{}) (interface{}, error) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return data, nil
	}
	picked := map[string]interface{}{}
	for _, k := range p.Fields {
		if v, ok := m[k]; ok {
			picked[k] = v
		}
	}
	return picked, nil
}
