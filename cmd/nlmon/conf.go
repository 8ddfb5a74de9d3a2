//go:build linux

package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/hkwi/nlmsg"
)

type Config struct {
	MetricsAddr string        `yaml:"metricsAddr"`
	LogLevel    string        `yaml:"logLevel"`
	Netlink     *nlmsg.Config `yaml:"netlink"`
}

func (c Config) String() string {
	m, err := yaml.MarshalWithOptions(c, yaml.Indent(2), yaml.IndentSequence(true))
	if err != nil {
		return "marshalling error..."
	}
	return string(m)
}

func (c *Config) UnmarshalYAML(b []byte) error {
	// Needed to break recursive calls into UnmarshalYAML
	type config Config

	def := &config{
		LogLevel: "info",
	}

	if err := yaml.Unmarshal(b, def); err != nil {
		return err
	}

	*c = Config(*def)

	return nil
}

func ReadConf(path string) (*Config, error) {
	if path == "" {
		return &Config{LogLevel: "info"}, nil
	}

	r, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading the configuration file: %w", err)
	}

	conf := Config{}
	if err := yaml.Unmarshal(r, &conf); err != nil {
		return nil, fmt.Errorf("error unmarshaling the configuration: %w", err)
	}

	return &conf, nil
}
