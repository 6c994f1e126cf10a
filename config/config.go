package config

import (
	"bytes"
	"fmt"
	"io/ioutil"
	"os"
	"regexp"

	version "github.com/hashicorp/go-version"
	yaml "gopkg.in/yaml.v3"
)

// Node holds the tunables a configuration file can set for one node or for
// every node via defaults.  Durations are strings in time.ParseDuration
// syntax.  Zero values mean "not set" and fall through to the next layer.
type Node struct {
	Workers      int    `yaml:"workers,omitempty"`
	QueueSize    int    `yaml:"queue_size,omitempty"`
	Timeout      string `yaml:"timeout,omitempty"`
	RetryInitial string `yaml:"retry_initial,omitempty"`
	RetryMax     string `yaml:"retry_max,omitempty"`
}

// Log selects the logging verbosity.
type Log struct {
	Level string `yaml:"level,omitempty"`
}

// Events selects where lifecycle and metrics events go.  Emitter is one of
// "log", "json", "http" or "none"; URI only applies to "http".
type Events struct {
	Emitter  string `yaml:"emitter,omitempty"`
	URI      string `yaml:"uri,omitempty"`
	Interval string `yaml:"interval,omitempty"`
}

// Config is the root of a dataflow configuration file.
type Config struct {
	Requires string          `yaml:"requires,omitempty"`
	Log      Log             `yaml:"log,omitempty"`
	Events   Events          `yaml:"events,omitempty"`
	Defaults Node            `yaml:"defaults,omitempty"`
	Nodes    map[string]Node `yaml:"nodes,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Events:   Events{Emitter: "log", Interval: "10s"},
		Defaults: Node{Workers: 10, QueueSize: 10},
	}
}

var envRe = regexp.MustCompile(`\$\{(.*?)\}`)

// ExpandEnv replaces every ${VAR} in data with the value of VAR from the
// environment.  Unset variables expand to the empty string.  Flow definition
// files get the same treatment as configuration files.
func ExpandEnv(data []byte) []byte {
	for _, m := range envRe.FindAllStringSubmatch(string(data), -1) {
		data = bytes.Replace(data, []byte(m[0]), []byte(os.Getenv(m[1])), -1)
	}
	return data
}

// Parse decodes a configuration document after environment expansion.
func Parse(data []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(ExpandEnv(data), &c); err != nil {
		return Config{}, fmt.Errorf("unable to parse config, %s", err)
	}
	return c, nil
}

// Load reads and parses the configuration file at path.
func Load(path string) (Config, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	return Parse(data)
}

// NodeConfig resolves the settings for the named node: the per-node section
// where present, the defaults section for everything it leaves unset.
func (c Config) NodeConfig(name string) Node {
	n := c.Defaults
	override, ok := c.Nodes[name]
	if !ok {
		return n
	}
	if override.Workers != 0 {
		n.Workers = override.Workers
	}
	if override.QueueSize != 0 {
		n.QueueSize = override.QueueSize
	}
	if override.Timeout != "" {
		n.Timeout = override.Timeout
	}
	if override.RetryInitial != "" {
		n.RetryInitial = override.RetryInitial
	}
	if override.RetryMax != "" {
		n.RetryMax = override.RetryMax
	}
	return n
}

// CheckRequires verifies the running version against the file's requires
// constraint, e.g. ">= 1.0, < 2.0".  An empty constraint always passes.
func (c Config) CheckRequires(current string) error {
	if c.Requires == "" {
		return nil
	}
	constraint, err := version.NewConstraint(c.Requires)
	if err != nil {
		return fmt.Errorf("invalid requires constraint %q, %s", c.Requires, err)
	}
	v, err := version.NewVersion(current)
	if err != nil {
		return fmt.Errorf("invalid version %q, %s", current, err)
	}
	if !constraint.Check(v) {
		return fmt.Errorf("version %s does not satisfy %q", current, c.Requires)
	}
	return nil
}
