package main

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/compose/dataflow/config"
)

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer os.Chdir(wd)
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}

	c, err := loadConfig(defaultConfigFile)
	if err != nil {
		t.Fatalf("unexpected error, %s", err)
	}
	if c.Defaults.Workers != config.Default().Defaults.Workers {
		t.Errorf("expected built-in defaults, got %+v", c.Defaults)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected an error for a missing config file, got none")
	}
}

func TestLoadConfigRequires(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strict.yaml")
	if err := ioutil.WriteFile(path, []byte("requires: \">= 99.0\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("expected a version constraint error, got none")
	}
}

func TestLoadConfigBadLogLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loud.yaml")
	if err := ioutil.WriteFile(path, []byte("log:\n  level: shouty\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadConfig(path); err == nil {
		t.Error("expected a log level error, got none")
	}
}

func TestRunTest(t *testing.T) {
	if err := runTest([]string{"testdata/test_flow.js"}); err != nil {
		t.Errorf("unexpected error for a valid flow, %s", err)
	}

	bad := filepath.Join(t.TempDir(), "cyclic.js")
	flow := `var g = dataflow.Graph();
var a = g.Node("a", "omit", {fields: []});
var b = g.Node("b", "omit", {fields: []});
a.To(b);
b.To(a);
`
	if err := ioutil.WriteFile(bad, []byte(flow), 0644); err != nil {
		t.Fatal(err)
	}

	err := runTest([]string{"testdata/test_flow.js", bad})
	if err == nil {
		t.Fatal("expected the cyclic flow to fail validation, got no error")
	}
	if !strings.Contains(err.Error(), "cyclic.js") {
		t.Errorf("expected the error to name the failing file, got %q", err)
	}
}

func TestRunInit(t *testing.T) {
	dir := t.TempDir()
	if err := runInit([]string{dir}); err != nil {
		t.Fatalf("unexpected error, %s", err)
	}
	for _, name := range []string{defaultConfigFile, defaultPipelineFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s was not written, %s", name, err)
		}
	}

	// the starter files must parse, build and validate
	conf, err := config.Load(filepath.Join(dir, defaultConfigFile))
	if err != nil {
		t.Fatalf("starter config does not parse, %s", err)
	}
	builder, err := newBuilder(conf, filepath.Join(dir, defaultPipelineFile))
	if err != nil {
		t.Fatalf("starter flow does not build, %s", err)
	}
	if err := builder.Validate(); err != nil {
		t.Errorf("starter flow does not validate, %s", err)
	}

	if err := runInit([]string{dir}); err == nil {
		t.Error("expected a refusal to overwrite, got none")
	}
}
