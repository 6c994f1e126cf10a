package stdin

import (
	"context"
	"io"
	"os"

	"github.com/compose/dataflow/log"
	"github.com/compose/dataflow/source"
)

const (
	sampleConfig = `    type: stdin`

	description = "a source that reads documents from stdin, one JSON document per line"
)

var (
	_ source.Source      = &Stdin{}
	_ source.Describable = &Stdin{}
)

// Stdin reads items from standard input, one per line.  Lines holding JSON
// are decoded; anything else is sent as the raw line.
type Stdin struct {
	in io.Reader
}

func init() {
	source.Add("stdin", func() source.Source {
		return &Stdin{in: os.Stdin}
	})
}

// Description for stdin source
func (s *Stdin) Description() string {
	return description
}

// SampleConfig for stdin source
func (s *Stdin) SampleConfig() string {
	return sampleConfig
}

// Read sends one item per line until stdin closes.
func (s *Stdin) Read(ctx context.Context, send func(interface{}) error) error {
	log.Infoln("reading from stdin...")
	in := s.in
	if in == nil {
		in = os.Stdin
	}
	defer log.Infoln("stdin closed")
	return source.DecodeLines(ctx, in, send)
}
