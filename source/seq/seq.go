package seq

import (
	"context"
	"time"

	"github.com/compose/dataflow/log"
	"github.com/compose/dataflow/source"
)

const (
	sampleConfig = `    type: seq
    from: 1
    to: 100
    batch: 10
    interval: 10ms`

	description = "a source that generates a sequence of integers, useful for trying out flows"
)

var (
	_ source.Source      = &Seq{}
	_ source.Describable = &Seq{}
)

// Seq generates the integers from From to To inclusive.  With Batch set it
// sends slices of up to Batch integers instead of single values, which is
// the shape an iterable head expects.  Interval, when set, is the pause
// between sends.
type Seq struct {
	From     int    `json:"from" doc:"the first integer of the sequence"`
	To       int    `json:"to" doc:"the last integer of the sequence"`
	Batch    int    `json:"batch" doc:"send slices of up to this many integers instead of single values"`
	Interval string `json:"interval" doc:"the pause between sends, ie 10ms"`
}

func init() {
	source.Add("seq", func() source.Source {
		return &Seq{}
	})
}

// Description for seq source
func (s *Seq) Description() string {
	return description
}

// SampleConfig for seq source
func (s *Seq) SampleConfig() string {
	return sampleConfig
}

// Read sends the sequence and returns.
func (s *Seq) Read(ctx context.Context, send func(interface{}) error) error {
	var pause time.Duration
	if s.Interval != "" {
		d, err := time.ParseDuration(s.Interval)
		if err != nil {
			return err
		}
		pause = d
	}
	log.With("from", s.From).With("to", s.To).Infoln("sequence starting...")

	next := s.From
	for next <= s.To {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var item interface{}
		if s.Batch > 0 {
			batch := make([]interface{}, 0, s.Batch)
			for len(batch) < s.Batch && next <= s.To {
				batch = append(batch, next)
				next++
			}
			item = batch
		} else {
			item = next
			next++
		}
		if err := send(item); err != nil {
			return err
		}
		if pause > 0 {
			time.Sleep(pause)
		}
	}
	log.With("from", s.From).With("to", s.To).Infoln("sequence finished")
	return nil
}
