package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

var version = "0.5.2"

func main() {
	// a .env file is optional; when present it feeds ${VAR} expansion in
	// config and flow files
	godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var run func([]string) error
	switch strings.ToLower(os.Args[1]) {
	case "about":
		run = runAbout
	case "init":
		run = runInit
	case "list":
		run = runList
	case "run":
		run = runRun
	case "test":
		run = runTest
	default:
		usage()
		os.Exit(1)
	}

	if err := run(os.Args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "USAGE\n")
	fmt.Fprintf(os.Stderr, "  %s <command> [flags]\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "COMMANDS\n")
	fmt.Fprintf(os.Stderr, "  run     run the flow defined in a file\n")
	fmt.Fprintf(os.Stderr, "  test    check one or more flow files without running them\n")
	fmt.Fprintf(os.Stderr, "  list    list the registered functions and sources\n")
	fmt.Fprintf(os.Stderr, "  about   describe a source or function\n")
	fmt.Fprintf(os.Stderr, "  init    write a starter %s and %s\n", defaultConfigFile, defaultPipelineFile)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "VERSION\n")
	fmt.Fprintf(os.Stderr, "  %s\n", version)
	fmt.Fprintf(os.Stderr, "\n")
}
