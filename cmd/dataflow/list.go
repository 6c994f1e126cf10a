package main

import (
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/compose/dataflow/function"
	"github.com/compose/dataflow/source"
)

func runList(args []string) error {
	var configFilename string
	flagset := baseFlagSet("list", &configFilename)
	flagset.Usage = usageFor(flagset, "dataflow list [flags]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	conf, err := loadConfig(configFilename)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"name", "kind"})
	fns := function.RegisteredFunctions()
	sort.Strings(fns)
	for _, name := range fns {
		table.Append([]string{name, "function"})
	}
	srcs := source.RegisteredSources()
	sort.Strings(srcs)
	for _, name := range srcs {
		table.Append([]string{name, "source"})
	}
	table.Render()

	if len(conf.Nodes) > 0 {
		nodes := make([]string, 0, len(conf.Nodes))
		for name := range conf.Nodes {
			nodes = append(nodes, name)
		}
		sort.Strings(nodes)

		table = tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"node", "workers", "queue size", "timeout"})
		for _, name := range nodes {
			nc := conf.NodeConfig(name)
			table.Append([]string{name, strconv.Itoa(nc.Workers), strconv.Itoa(nc.QueueSize), nc.Timeout})
		}
		table.Render()
	}
	return nil
}
