// Copyright 2025 The Dataflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline moves data through graphs of concurrent nodes.
//
// A Node owns a bounded input queue and a pool of workers applying one
// transform; nodes are wired into a Graph, or into one of the pipeline
// variants built on it.  Nodes can be defined like:
//
//   fn, err := function.GetFunction("goja", map[string]interface{}{"filename": "double.js"})
//   if err != nil {
//     fmt.Println(err)
//     os.Exit(1)
//   }
//   double, err := pipeline.NewNode("double", fn,
//     pipeline.WithWorkers(4),
//     pipeline.WithQueueSize(100),
//   )
//   sink, err := pipeline.NewNode("sink", function.Func(report),
//     pipeline.WithNoOutput(),
//   )
//
// and run as a group:
//
//   double.SetDestination(sink)
//   g := pipeline.NewGraph("example")
//   g.Add(double, sink)
//   runner := pipeline.NewRunner(g, events.LogEmitter(), 10*time.Second, version)
//   runner.Run()
//
// the event emitters are defined in dataflow/events, and are used to deliver
// error/metrics/etc about the running process
package pipeline
