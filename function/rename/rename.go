package rename

import (
	"github.com/compose/dataflow/function"
)

func init() {
	function.Add(
		"rename",
		func() function.Function {
			return &rename{}
		},
	)
}

// rename swaps out field names of map payloads based on the configured
// field_map.  Payloads that are not maps pass through untouched.
type rename struct {
	SwapMap map[string]string `json:"field_map"`
}

func (r *rename) Apply(data interface{}) (interface{}, error) {
	m, ok := data.(map[string]interface{})
	if !ok {
		return data, nil
	}
	for oldName, newName := range r.SwapMap {
		if v, ok := m[oldName]; ok {
			m[newName] = v
			delete(m, oldName)
		}
	}
	return m, nil
}
