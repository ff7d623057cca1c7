// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package config handles the hwnet.json configuration file of the command
// line tool.
//
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FileName is the name of the configuration file.
//
const FileName = "hwnet.json"

// Config is the command line tool configuration. Command line flags
// override its fields.
//
type Config struct {
	// Library is the path of the Liberty gate library.
	Library string `json:"library,omitempty"`

	// Top is the name of the top level entity. Empty selects the last
	// entity of the design.
	Top string `json:"top,omitempty"`

	// Output is the path of the JSON netlist. Empty or "-" means stdout.
	Output string `json:"output,omitempty"`

	// Validate enables schema validation of the JSON netlist.
	Validate *bool `json:"validate,omitempty"`

	// LogLevel is a logrus level name.
	LogLevel string `json:"logLevel,omitempty"`
}

// Default returns the default configuration.
//
func Default() *Config {
	c := new(Config)
	c.applyDefaults()
	return c
}

func boolPtr(v bool) *bool { return &v }

func (c *Config) applyDefaults() {
	if c.Output == "" {
		c.Output = "-"
	}
	if c.Validate == nil {
		c.Validate = boolPtr(true)
	}
	if c.LogLevel == "" {
		c.LogLevel = logrus.InfoLevel.String()
	}
}

// Level returns the parsed log level.
//
func (c *Config) Level() (logrus.Level, error) {
	l, err := logrus.ParseLevel(c.LogLevel)
	return l, errors.Wrap(err, "config")
}

// Load looks for a configuration file in this order:
//
//	<dir>/hwnet.json
//	<dir>/.hwnet.json
//	~/.config/hwnet/config.json
//
// and loads the first one found. It returns the default configuration if
// there is none.
//
func Load(dir string) (*Config, error) {
	paths := []string{
		filepath.Join(dir, FileName),
		filepath.Join(dir, "."+FileName),
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "hwnet", "config.json"))
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return Default(), nil
}

// LoadFile loads the configuration from the given file. Missing fields get
// their default value.
//
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config file")
	}
	var c Config
	if err = json.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrapf(err, "parse config file %s", path)
	}
	c.applyDefaults()
	if _, err = c.Level(); err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	return &c, nil
}

// Save writes the configuration to a file.
//
func (c *Config) Save(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal config")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "write config file")
}
