package pretty

import (
	"encoding/json"
	"strings"

	"github.com/compose/dataflow/function"
	"github.com/compose/dataflow/log"
)

const (
	defaultIndent = 2
)

var (
	defaultPrettifier = &prettify{Spaces: defaultIndent}
)

func init() {
	function.Add(
		"pretty",
		func() function.Function {
			return defaultPrettifier
		},
	)
}

// prettify logs each payload as indented JSON and passes it through
// unchanged, which makes it a cheap tap to drop into any edge of a graph.
type prettify struct {
	Spaces int `json:"spaces"`
}

func (p *prettify) Apply(data interface{}) (interface{}, error) {
	b, err := json.Marshal(data)
	if p.Spaces > 0 {
		b, err = json.MarshalIndent(data, "", strings.Repeat(" ", p.Spaces))
	}
	if err != nil {
		// not all payloads marshal; fall back to %v rather than failing the item
		log.Infof("\n%v", data)
		return data, nil
	}
	log.Infof("\n%s", string(b))
	return data, nil
}
