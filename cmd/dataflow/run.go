package main

func runRun(args []string) error {
	var configFilename string
	flagset := baseFlagSet("run", &configFilename)
	flagset.Usage = usageFor(flagset, "dataflow run [flags] <flow.js>")
	if err := flagset.Parse(args); err != nil {
		return err
	}

	args = flagset.Args()
	if len(args) <= 0 {
		// Set to default argument
		args = []string{defaultPipelineFile}
	}

	conf, err := loadConfig(configFilename)
	if err != nil {
		return err
	}

	builder, err := newBuilder(conf, args[0])
	if err != nil {
		return err
	}

	return builder.Run()
}
