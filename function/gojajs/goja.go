package gojajs

import (
	"errors"
	"fmt"
	"io/ioutil"
	"sync"

	"github.com/compose/dataflow/function"
	"github.com/dop251/goja"
)

var (
	_ function.Function = &Goja{}

	// ErrEmptyFilename will be returned when the provided filename is empty.
	ErrEmptyFilename = errors.New("no filename specified")

	// ErrNoTransform is returned when the loaded script does not define a
	// `transform` function.
	ErrNoTransform = errors.New("script does not define a transform function")
)

func init() {
	function.Add(
		"goja",
		func() function.Function {
			return &Goja{}
		},
	)
	function.Add(
		"js",
		func() function.Function {
			return &Goja{}
		},
	)
}

// Goja applies a user supplied JavaScript `transform` function to each
// payload.  A payload the script returns null or undefined for produces no
// downstream emission.
type Goja struct {
	Filename string `json:"filename"`

	// a goja.Runtime is not safe for concurrent use and the whole worker
	// pool shares this instance
	mu sync.Mutex
	vm *goja.Runtime
	fn JSFunc
}

// JSFunc defines the structure of a transform function.
type JSFunc func(interface{}) goja.Value

// Apply fulfills the function.Function interface by transforming the
// incoming payload with the configured JavaScript function.
func (g *Goja) Apply(data interface{}) (interface{}, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.vm == nil {
		if err := g.initVM(); err != nil {
			return nil, err
		}
	}
	return g.transformOne(data)
}

func (g *Goja) initVM() error {
	vm := goja.New()

	src, err := extractFunction(g.Filename)
	if err != nil {
		return err
	}
	if _, err := vm.RunString(src); err != nil {
		return err
	}

	v := vm.Get("transform")
	if v == nil {
		return ErrNoTransform
	}
	var fn JSFunc
	if err := vm.ExportTo(v, &fn); err != nil {
		return ErrNoTransform
	}
	g.vm = vm
	g.fn = fn
	return nil
}

func extractFunction(filename string) (string, error) {
	if filename == "" {
		return "", ErrEmptyFilename
	}

	ba, err := ioutil.ReadFile(filename)
	if err != nil {
		return "", err
	}

	return string(ba), nil
}

func (g *Goja) transformOne(data interface{}) (out interface{}, err error) {
	// a script exception surfaces as a panic out of the exported func;
	// convert it to an error so the retry stage sees a failure, not a crash
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("transform error: %v", r)
		}
	}()

	result := g.fn(data).Export()
	if result == nil {
		return function.Skip, nil
	}
	return result, nil
}
