package file

import (
	"context"
	"os"

	"github.com/compose/dataflow/log"
	"github.com/compose/dataflow/source"
)

const (
	sampleConfig = `    type: file
    filename: /tmp/items.json`

	description = "a source that reads documents from a file, one JSON document per line"
)

var (
	_ source.Source      = &File{}
	_ source.Describable = &File{}
)

// File reads items from a file on disk, one per line.  Lines holding JSON
// are decoded; anything else is sent as the raw line.
type File struct {
	Filename string `json:"filename" doc:"the file to read, ie /tmp/items.json"`
}

func init() {
	source.Add("file", func() source.Source {
		return &File{}
	})
}

// Description for file source
func (f *File) Description() string {
	return description
}

// SampleConfig for file source
func (f *File) SampleConfig() string {
	return sampleConfig
}

// Read sends one item per line until EOF.
func (f *File) Read(ctx context.Context, send func(interface{}) error) error {
	log.With("file", f.Filename).Infoln("source starting...")
	fh, err := os.Open(f.Filename)
	if err != nil {
		return err
	}
	defer fh.Close()
	defer log.With("file", f.Filename).Infoln("source finished")
	return source.DecodeLines(ctx, fh, send)
}
