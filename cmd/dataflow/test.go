package main

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

func runTest(args []string) error {
	var configFilename string
	flagset := baseFlagSet("test", &configFilename)
	flagset.Usage = usageFor(flagset, "dataflow test [flags] <flow.js>...")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	args = flagset.Args()
	if len(args) <= 0 {
		// Set to the default argument
		args = []string{defaultPipelineFile}
	}

	conf, err := loadConfig(configFilename)
	if err != nil {
		return err
	}

	// each file gets its own VM, so checking them concurrently is safe
	var eg errgroup.Group
	for _, file := range args {
		file := file
		eg.Go(func() error {
			builder, err := newBuilder(conf, file)
			if err != nil {
				return fmt.Errorf("%s: %s", file, err)
			}
			if err := builder.Validate(); err != nil {
				return fmt.Errorf("%s: %s", file, err)
			}
			fmt.Print(builder)
			return nil
		})
	}
	return eg.Wait()
}
