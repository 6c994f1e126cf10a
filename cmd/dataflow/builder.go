package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dop251/goja"
	uuid "github.com/nu7hatch/gouuid"
	"github.com/oklog/run"
	"golang.org/x/sync/errgroup"

	"github.com/compose/dataflow/config"
	"github.com/compose/dataflow/events"
	"github.com/compose/dataflow/function"
	_ "github.com/compose/dataflow/function/all"
	"github.com/compose/dataflow/log"
	"github.com/compose/dataflow/pipe"
	"github.com/compose/dataflow/pipeline"
	"github.com/compose/dataflow/source"
	_ "github.com/compose/dataflow/source/all"
)

// Dataflow evaluates a JavaScript flow definition and holds the group it
// describes.  It is bound into the VM as `dataflow` (alias `df`), and every
// registered transform function is bound as a constructor under its own
// name.
type Dataflow struct {
	vm    *goja.Runtime
	conf  config.Config
	name  string
	group pipeline.Group
	feeds []*feed
}

type feed struct {
	name string
	src  source.Source
	node *pipeline.Node
}

func newBuilder(conf config.Config, file string) (*Dataflow, error) {
	d := &Dataflow{
		conf: conf,
		name: strings.TrimSuffix(filepath.Base(file), filepath.Ext(file)),
		vm:   goja.New(),
	}
	d.vm.Set("dataflow", d)
	d.vm.Set("df", d.vm.Get("dataflow"))
	for _, name := range function.RegisteredFunctions() {
		d.vm.Set(name, buildFunction(name))
	}

	ba, err := ioutil.ReadFile(file)
	if err != nil {
		return nil, err
	}
	// flow files can reference environment variables, replace these before
	// evaluating
	if err := d.eval(string(config.ExpandEnv(ba))); err != nil {
		return nil, err
	}
	if d.group == nil {
		return nil, errors.New("no flow defined, call dataflow.Graph() or one of the pipeline constructors")
	}
	return d, nil
}

// eval runs the definition.  Construction mistakes surface as panics out of
// the bridged methods and come back as errors here, with the script line
// when goja can attribute one.
func (d *Dataflow) eval(src string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()
	_, err = d.vm.RunString(src)
	return err
}

// String lays the flow out one node per line with its transform and
// destinations, followed by the feeds.
func (d *Dataflow) String() string {
	out := fmt.Sprintf("%s:\n", d.name)
	for _, n := range d.group.Nodes() {
		out += fmt.Sprintf("  %s (%s)", n.Name(), n.FunctionName())
		dsts := n.Destinations()
		if len(dsts) > 0 {
			names := make([]string, 0, len(dsts))
			for _, dst := range dsts {
				names = append(names, dst.Name())
			}
			out += fmt.Sprintf(" -> %s", strings.Join(names, ", "))
		}
		out += "\n"
	}
	for _, f := range d.feeds {
		out += fmt.Sprintf("  feed %s -> %s\n", f.name, f.node.Name())
	}
	return out
}

// Validate checks the flow the way Run would, without starting anything.
func (d *Dataflow) Validate() error {
	return d.group.Validate()
}

// Run brings the flow up and blocks until the feeds are exhausted or a
// SIGINT/SIGTERM arrives, then drains every node before returning.
func (d *Dataflow) Run() error {
	emit, interval, err := emitFunc(d.conf.Events)
	if err != nil {
		return err
	}
	r := pipeline.NewRunner(d.group, emit, interval, version)

	var g run.Group
	{
		g.Add(func() error {
			return r.Run()
		}, func(error) {
			r.Stop()
		})
	}
	if len(d.feeds) > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		g.Add(func() error {
			return d.runFeeds(ctx)
		}, func(error) {
			cancel()
		})
	}
	{
		cancel := make(chan struct{})
		g.Add(func() error {
			return interrupt(cancel)
		}, func(error) {
			close(cancel)
		})
	}
	return g.Run()
}

// runFeeds drives every feed concurrently and returns once all of them are
// done, which is what ends a run with finite sources.  Shutdown noise, the
// context being canceled or the destination queue closing under a send, is
// not an error.
func (d *Dataflow) runFeeds(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, f := range d.feeds {
		f := f
		eg.Go(func() error {
			l := log.With("source", f.name).With("node", f.node.Name())
			l.Infoln("feeding...")
			err := f.src.Read(ctx, f.node.Put)
			if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pipe.ErrQueueStopped) {
				l.Errorln("source failed:", err)
				return err
			}
			l.Infoln("source finished")
			return nil
		})
	}
	return eg.Wait()
}

func interrupt(cancel <-chan struct{}) error {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-c:
		return fmt.Errorf("received signal %s", sig)
	case <-cancel:
		return errors.New("canceled")
	}
}

// emitFunc resolves the configured event emitter.
func emitFunc(e config.Events) (events.EmitFunc, time.Duration, error) {
	interval := 10 * time.Second
	if e.Interval != "" {
		d, err := time.ParseDuration(e.Interval)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid events interval, %s", err)
		}
		interval = d
	}
	switch e.Emitter {
	case "", "log":
		return events.LogEmitter(), interval, nil
	case "json":
		return events.JSONLogEmitter(), interval, nil
	case "http":
		if e.URI == "" {
			return nil, 0, errors.New("events emitter 'http' requires a uri")
		}
		return events.HTTPPostEmitter(e.URI, "", ""), interval, nil
	case "none":
		return events.NoopEmitter(), interval, nil
	}
	return nil, 0, fmt.Errorf("unknown events emitter '%s'", e.Emitter)
}

// jsFunction is a constructor result, a resolved transform that remembers
// its registry name.
type jsFunction struct {
	name string
	fn   function.Function
}

func buildFunction(name string) func(map[string]interface{}) jsFunction {
	return func(args map[string]interface{}) jsFunction {
		f, err := function.GetFunction(name, args)
		if err != nil {
			panic(err)
		}
		return jsFunction{name, f}
	}
}

// jsSource wraps a resolved feed source with its registry name.
type jsSource struct {
	name string
	src  source.Source
}

// Source resolves a registered feed source by name with its configuration,
// for use with Feed.
func (d *Dataflow) Source(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 {
		panic("a source name is required")
	}
	name, ok := call.Arguments[0].Export().(string)
	if !ok {
		panic("the first argument names the source")
	}
	conf := source.Config{}
	if len(call.Arguments) > 1 {
		m, ok := call.Arguments[1].Export().(map[string]interface{})
		if !ok {
			panic("the second argument is the source configuration")
		}
		conf = source.Config(m)
	}
	s, err := source.GetSource(name, conf)
	if err != nil {
		panic(err)
	}
	return d.vm.ToValue(&jsSource{name: name, src: s})
}

// Graph opens an empty acyclic flow; add nodes with Node and wire them with
// To.
func (d *Dataflow) Graph() goja.Value {
	g := pipeline.NewGraph(d.name)
	d.setGroup(g)
	return d.vm.ToValue(&jsGraph{d: d, graph: g})
}

// Node builds a standalone node for the pipeline constructors.  Inside a
// Graph use g.Node, which also registers it.
func (d *Dataflow) Node(call goja.FunctionCall) goja.Value {
	n := d.buildNode(call.Arguments)
	return d.vm.ToValue(&jsNode{d: d, node: n})
}

// Pipeline chains the given nodes linearly; the last one must be a sink
// built with no_output.
func (d *Dataflow) Pipeline(call goja.FunctionCall) goja.Value {
	name, nodes := d.exportGroupArgs(call.Arguments)
	p, err := pipeline.NewPipeline(name, nodes...)
	if err != nil {
		panic(err)
	}
	d.setGroup(p)
	return d.vm.ToValue(&jsGraph{d: d})
}

// Cycle chains the given nodes linearly but tolerates feedback edges added
// with To afterwards.
func (d *Dataflow) Cycle(call goja.FunctionCall) goja.Value {
	name, nodes := d.exportGroupArgs(call.Arguments)
	p, err := pipeline.NewCyclePipeline(name, nodes...)
	if err != nil {
		panic(err)
	}
	d.setGroup(p)
	return d.vm.ToValue(&jsGraph{d: d})
}

// Iterable spreads each fed collection across the chain and prints every
// reassembled result set to stdout as JSON.
func (d *Dataflow) Iterable(call goja.FunctionCall) goja.Value {
	name, nodes := d.exportGroupArgs(call.Arguments)
	p, err := pipeline.NewIterablePipeline(name, emitResults, nodes...)
	if err != nil {
		panic(err)
	}
	d.setGroup(p)
	return d.vm.ToValue(&jsGraph{d: d})
}

// Order restores arrival order at the tail and prints each result to stdout
// as JSON.
func (d *Dataflow) Order(call goja.FunctionCall) goja.Value {
	name, nodes := d.exportGroupArgs(call.Arguments)
	p, err := pipeline.NewOrderPipeline(name, emitResult, nodes...)
	if err != nil {
		panic(err)
	}
	d.setGroup(p)
	return d.vm.ToValue(&jsGraph{d: d})
}

func (d *Dataflow) setGroup(g pipeline.Group) {
	if d.group != nil {
		panic("a flow is already defined, one per file")
	}
	d.group = g
}

// exportGroupArgs reads the (name?, node...) forms the pipeline
// constructors take.  Without a name the flow is named after the file.
func (d *Dataflow) exportGroupArgs(args []goja.Value) (string, []*pipeline.Node) {
	name := d.name
	rest := args
	if len(args) > 0 {
		if s, ok := args[0].Export().(string); ok {
			name = s
			rest = args[1:]
		}
	}
	nodes := make([]*pipeline.Node, 0, len(rest))
	for _, arg := range rest {
		jn, ok := arg.Export().(*jsNode)
		if !ok {
			panic(fmt.Sprintf("expected a node, got %T", arg.Export()))
		}
		nodes = append(nodes, jn.node)
	}
	return name, nodes
}

// node option keys the script can set; every other key configures the
// transform function itself
var nodeOptionKeys = map[string]bool{
	"workers":        true,
	"queue_size":     true,
	"timeout":        true,
	"no_output":      true,
	"iterable_input": true,
	"retry_initial":  true,
	"retry_max":      true,
}

// buildNode reads the (name?, function, options?) forms a script can use.
// The function argument is a registered name or a constructor result; a
// missing name is filled with a uuid.
func (d *Dataflow) buildNode(args []goja.Value) *pipeline.Node {
	if len(args) == 0 {
		panic("a transform function is required")
	}

	// a leading string is the node name when a function argument follows
	var name string
	if s, ok := args[0].Export().(string); ok && len(args) > 1 && isFunctionArg(args[1].Export()) {
		name = s
		args = args[1:]
	}
	if name == "" {
		u, err := uuid.NewV4()
		if err != nil {
			panic(err)
		}
		name = u.String()
	}

	opts := map[string]interface{}{}
	if len(args) > 1 {
		m, ok := args[1].Export().(map[string]interface{})
		if !ok {
			panic(fmt.Sprintf("expected an options map, got %T", args[1].Export()))
		}
		opts = m
	}
	nodeOpts := map[string]interface{}{}
	fnConf := map[string]interface{}{}
	for k, v := range opts {
		if nodeOptionKeys[k] {
			nodeOpts[k] = v
		} else {
			fnConf[k] = v
		}
	}

	var (
		fn     function.Function
		fnName string
	)
	switch v := args[0].Export().(type) {
	case string:
		f, err := function.GetFunction(v, fnConf)
		if err != nil {
			panic(err)
		}
		fn, fnName = f, v
	case jsFunction:
		for k := range fnConf {
			panic(fmt.Sprintf("unknown node option '%s'", k))
		}
		fn, fnName = v.fn, v.name
	default:
		panic(fmt.Sprintf("expected a transform function, got %T", v))
	}

	options, err := d.nodeOptions(name, fnName, nodeOpts)
	if err != nil {
		panic(err)
	}
	n, err := pipeline.NewNode(name, fn, options...)
	if err != nil {
		panic(err)
	}
	return n
}

func isFunctionArg(v interface{}) bool {
	switch v.(type) {
	case string, jsFunction:
		return true
	}
	return false
}

// nodeOptions turns the script's option map into NewNode options, with the
// YAML configuration filling whatever the script leaves unset.
func (d *Dataflow) nodeOptions(name, fnName string, opts map[string]interface{}) ([]pipeline.OptionFunc, error) {
	options := []pipeline.OptionFunc{pipeline.WithFunctionName(fnName)}
	var retry config.Node
	for k, v := range opts {
		switch k {
		case "workers":
			n, ok := toInt(v)
			if !ok {
				return nil, fmt.Errorf("node %s: workers must be a number, got %v", name, v)
			}
			options = append(options, pipeline.WithWorkers(n))
		case "queue_size":
			n, ok := toInt(v)
			if !ok {
				return nil, fmt.Errorf("node %s: queue_size must be a number, got %v", name, v)
			}
			options = append(options, pipeline.WithQueueSize(n))
		case "timeout":
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("node %s: timeout must be a duration string, got %v", name, v)
			}
			t, err := time.ParseDuration(s)
			if err != nil {
				return nil, fmt.Errorf("node %s: %s", name, err)
			}
			options = append(options, pipeline.WithTimeout(t))
		case "no_output":
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("node %s: no_output must be a boolean, got %v", name, v)
			}
			if b {
				options = append(options, pipeline.WithNoOutput())
			}
		case "iterable_input":
			b, ok := v.(bool)
			if !ok {
				return nil, fmt.Errorf("node %s: iterable_input must be a boolean, got %v", name, v)
			}
			if b {
				options = append(options, pipeline.WithIterableInput())
			}
		case "retry_initial":
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("node %s: retry_initial must be a duration string, got %v", name, v)
			}
			retry.RetryInitial = s
		case "retry_max":
			s, ok := v.(string)
			if !ok {
				return nil, fmt.Errorf("node %s: retry_max must be a duration string, got %v", name, v)
			}
			retry.RetryMax = s
		}
	}
	options = append(options, pipeline.WithConfig(retry), pipeline.WithConfig(d.conf.NodeConfig(name)))
	return options, nil
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}

// jsGraph is the flow handle returned to the script.  graph is only set for
// Graph flows, where the script may keep adding nodes; the pipeline
// variants fix their members at construction.
type jsGraph struct {
	d     *Dataflow
	graph *pipeline.Graph
}

// Node builds a node, registers it with the graph, and returns it for
// wiring.
func (g *jsGraph) Node(call goja.FunctionCall) goja.Value {
	if g.graph == nil {
		panic("nodes are fixed at construction for pipeline flows")
	}
	n := g.d.buildNode(call.Arguments)
	if err := g.graph.Add(n); err != nil {
		panic(err)
	}
	return g.d.vm.ToValue(&jsNode{d: g.d, node: n})
}

// Feed connects a source to a node, named by the second argument or the
// first node added.
func (g *jsGraph) Feed(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 {
		panic("a source is required")
	}
	js, ok := call.Arguments[0].Export().(*jsSource)
	if !ok {
		panic(fmt.Sprintf("expected a source, got %T", call.Arguments[0].Export()))
	}

	var node *pipeline.Node
	if len(call.Arguments) > 1 {
		name, ok := call.Arguments[1].Export().(string)
		if !ok {
			panic("the second argument names the node to feed")
		}
		n, ok := g.d.group.Node(name)
		if !ok {
			panic(fmt.Sprintf("no node named '%s' in the flow", name))
		}
		node = n
	} else {
		nodes := g.d.group.Nodes()
		if len(nodes) == 0 {
			panic("no node to feed, add one first")
		}
		node = nodes[0]
	}

	g.d.feeds = append(g.d.feeds, &feed{name: js.name, src: js.src, node: node})
	return goja.Undefined()
}

// jsNode wraps a pipeline node for wiring in the script.
type jsNode struct {
	d    *Dataflow
	node *pipeline.Node
}

// To routes this node's output to another and returns the destination, so
// chains read left to right.
func (n *jsNode) To(call goja.FunctionCall) goja.Value {
	if len(call.Arguments) == 0 {
		panic("a destination node is required")
	}
	dst, ok := call.Arguments[0].Export().(*jsNode)
	if !ok {
		panic(fmt.Sprintf("expected a node, got %T", call.Arguments[0].Export()))
	}
	n.node.SetDestination(dst.node)
	return n.d.vm.ToValue(dst)
}

// results from the aggregate variants go to stdout as JSON, one line per
// delivery, keeping data output apart from the logs on stderr
func emitResults(agg pipeline.Aggregate) error {
	return printJSON(agg.Results)
}

func emitResult(v interface{}) error {
	return printJSON(v)
}

func printJSON(v interface{}) error {
	ba, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(ba))
	return err
}
