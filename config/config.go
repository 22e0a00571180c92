// Package config holds the scopetool configuration file.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/quickwritereader/attrscope/containers"
	"github.com/quickwritereader/attrscope/tableio"
)

var ErrInvalidConfig = errors.New("invalid config")

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type InputConfig struct {
	Format string `yaml:"format"`
	// Class is the factory name of the root node documents load into.
	Class string `yaml:"class"`
}

type OutputConfig struct {
	Format string `yaml:"format"`
	Indent int    `yaml:"indent"`
}

type ContainersConfig struct {
	Buckets int `yaml:"buckets"`
}

// Config is the scopetool configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Input      InputConfig      `yaml:"input"`
	Output     OutputConfig     `yaml:"output"`
	Containers ContainersConfig `yaml:"containers"`
}

func Default() *Config {
	return &Config{
		Log:        LogConfig{Level: "info", Format: "text"},
		Input:      InputConfig{Format: string(tableio.FormatAuto), Class: "Scope"},
		Output:     OutputConfig{Format: string(tableio.FormatJSON), Indent: 2},
		Containers: ContainersConfig{Buckets: containers.DefaultBucketCount},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Parse(data, cfg); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML into cfg and validates the result.
func Parse(data []byte, cfg *Config) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse yaml: %w", err)
	}
	return cfg.Validate()
}

// Validate checks every field:
// - log level is a logrus level, log format is text or json
// - input format is auto, json or msgpack; output format json or msgpack
// - indent and bucket count are in range
func (c *Config) Validate() error {
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level %q: %w", c.Log.Level, ErrInvalidConfig)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format %q: %w", c.Log.Format, ErrInvalidConfig)
	}
	if _, err := tableio.ParseFormat(c.Input.Format); err != nil {
		return fmt.Errorf("input.format %q: %w", c.Input.Format, ErrInvalidConfig)
	}
	if c.Input.Class == "" {
		return fmt.Errorf("input.class is required: %w", ErrInvalidConfig)
	}
	out, err := tableio.ParseFormat(c.Output.Format)
	if err != nil || out == tableio.FormatAuto {
		return fmt.Errorf("output.format %q: %w", c.Output.Format, ErrInvalidConfig)
	}
	if c.Output.Indent < 0 || c.Output.Indent > 8 {
		return fmt.Errorf("output.indent %d out of [0, 8]: %w", c.Output.Indent, ErrInvalidConfig)
	}
	if c.Containers.Buckets < 1 {
		return fmt.Errorf("containers.buckets %d must be positive: %w", c.Containers.Buckets, ErrInvalidConfig)
	}
	return nil
}
