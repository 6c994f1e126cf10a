package main

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	yaml "gopkg.in/yaml.v3"

	"github.com/compose/dataflow/config"
)

const starterPipeline = `var g = dataflow.Graph();
var tidy = g.Node("tidy", "omit", {fields: ["password"]});
var out = g.Node("out", "pretty", {spaces: 2, no_output: true});
tidy.To(out);
g.Feed(dataflow.Source("stdin", {}));
`

func runInit(args []string) error {
	flagset := baseFlagSet("init", nil)
	flagset.Usage = usageFor(flagset, "dataflow init [dir]")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	dir := "."
	if args = flagset.Args(); len(args) > 0 {
		dir = args[0]
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	cfgPath := filepath.Join(dir, defaultConfigFile)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", cfgPath)
	}
	ba, err := yaml.Marshal(config.Default())
	if err != nil {
		return err
	}
	fmt.Printf("Writing %s...\n", cfgPath)
	if err := ioutil.WriteFile(cfgPath, ba, 0644); err != nil {
		return err
	}

	jsPath := filepath.Join(dir, defaultPipelineFile)
	if _, err := os.Stat(jsPath); err == nil {
		return fmt.Errorf("%s already exists, refusing to overwrite", jsPath)
	}
	fmt.Printf("Writing %s...\n", jsPath)
	return ioutil.WriteFile(jsPath, []byte(starterPipeline), 0644)
}
