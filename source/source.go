package source

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
)

// ErrNotFound gives the details of the failed source lookup
type ErrNotFound struct {
	Name string
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("source '%s' not found in registry", e.Name)
}

// Source feeds items into a running group from the outside world.
//
// Read calls send once per item and returns when the source is exhausted or
// the context is done.  send blocks while the receiving queue is at
// capacity, which is how backpressure reaches the source.
type Source interface {
	Read(ctx context.Context, send func(interface{}) error) error
}

// Describable defines the interface a source should follow to support the
// help functions.
// SampleConfig() returns an example configuration structure for the source
// Description() provides contextual information for what the source is for
type Describable interface {
	SampleConfig() string
	Description() string
}

// Config is an alias to map[string]interface{} and helps us turn a fuzzy
// document into a concrete named struct
type Config map[string]interface{}

// Construct will Marshal the Config and then Unmarshal it into a named
// struct
func (c *Config) Construct(conf interface{}) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, conf)
}

// GetString returns value stored in the config under the given key, or an
// empty string if the key doesn't exist, or isn't a string value
func (c Config) GetString(key string) string {
	i, ok := c[key]
	if !ok {
		return ""
	}
	s, ok := i.(string)
	if !ok {
		return ""
	}
	return s
}

// GetInt returns the value stored in the config under the given key, or
// zero if the key doesn't exist or doesn't hold a number.  Numbers arrive
// as float64 when the config came through JSON and as int when it was
// built in code.
func (c Config) GetInt(key string) int {
	switch v := c[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// DecodeLines reads r line by line and sends one item per line: the decoded
// document when the line is JSON, the raw line otherwise.  It stops at EOF
// or when the context is done.
func DecodeLines(ctx context.Context, r io.Reader, send func(interface{}) error) error {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		var doc interface{}
		if err := json.Unmarshal([]byte(line), &doc); err != nil {
			doc = line
		}
		if err := send(doc); err != nil {
			return err
		}
	}
	return scanner.Err()
}
