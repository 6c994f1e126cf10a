package main

import (
	"fmt"
	"sort"

	"github.com/compose/dataflow/function"
	"github.com/compose/dataflow/source"
)

func runAbout(args []string) error {
	flagset := baseFlagSet("about", nil)
	flagset.Usage = usageFor(flagset, "dataflow about [source|function]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	args = flagset.Args()
	if len(args) > 0 {
		return aboutOne(args[0])
	}

	fmt.Printf("dataflow %s\n\n", version)

	fmt.Println("sources:")
	sources := source.Sources()
	names := make([]string, 0, len(sources))
	for name := range sources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if d, ok := sources[name].(source.Describable); ok {
			fmt.Printf("  %s - %s\n", name, d.Description())
		}
	}

	fmt.Println("functions:")
	fns := function.RegisteredFunctions()
	sort.Strings(fns)
	for _, name := range fns {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

func aboutOne(name string) error {
	if s, ok := source.Sources()[name]; ok {
		if d, ok := s.(source.Describable); ok {
			fmt.Printf("%s - %s\n\nsample config:\n%s\n", name, d.Description(), d.SampleConfig())
			return nil
		}
		fmt.Printf("%s - source\n", name)
		return nil
	}
	if _, err := function.GetFunction(name, map[string]interface{}{}); err == nil {
		fmt.Printf("%s - transform function\n", name)
		return nil
	}
	return fmt.Errorf("no source or function named '%s' exists", name)
}
