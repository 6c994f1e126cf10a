package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sirupsen/logrus"

	"github.com/compose/dataflow/config"
	"github.com/compose/dataflow/log"
)

const (
	defaultPipelineFile = "pipeline.js"
	defaultConfigFile   = "dataflow.yaml"
)

func baseFlagSet(setName string, configFilename *string) *flag.FlagSet {
	flagset := flag.NewFlagSet(setName, flag.ExitOnError)
	if configFilename != nil {
		flagset.StringVar(configFilename, "config", defaultConfigFile, "YAML config file")
	}
	log.AddFlags(flagset)
	return flagset
}

func usageFor(fs *flag.FlagSet, short string) func() {
	return func() {
		fmt.Fprintf(os.Stderr, "USAGE\n")
		fmt.Fprintf(os.Stderr, "  %s\n", short)
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "FLAGS\n")
		w := tabwriter.NewWriter(os.Stderr, 0, 2, 2, ' ', 0)
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(w, "\t-%s %s\t%s\n", f.Name, f.DefValue, f.Usage)
		})
		w.Flush()
		fmt.Fprintf(os.Stderr, "\n")
	}
}

// loadConfig resolves the -config flag.  The default filename missing on
// disk falls back to built-in defaults; any other filename must exist.  A
// loaded file has its requires constraint checked against the running
// version and its log level applied.
func loadConfig(filename string) (config.Config, error) {
	if _, err := os.Stat(filename); os.IsNotExist(err) {
		if filename == defaultConfigFile {
			return config.Default(), nil
		}
		return config.Config{}, err
	}
	c, err := config.Load(filename)
	if err != nil {
		return config.Config{}, err
	}
	if err := c.CheckRequires(version); err != nil {
		return config.Config{}, err
	}
	if c.Log.Level != "" {
		l, err := logrus.ParseLevel(c.Log.Level)
		if err != nil {
			return config.Config{}, fmt.Errorf("invalid log level '%s' in %s", c.Log.Level, filename)
		}
		log.Orig().Level = l
	}
	return c, nil
}
