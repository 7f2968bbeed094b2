package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the transport flags so that a fixed setup (a bench rig,
// a deployed gateway) does not have to repeat them on every invocation.
// Explicit flags always win over file values.
type fileConfig struct {
	Adapter string  `yaml:"adapter"`
	Device  string  `yaml:"device"`
	Bus     int     `yaml:"bus"`
	Addr    string  `yaml:"addr"`
	Mode    string  `yaml:"mode"`
	Light   float64 `yaml:"light"`
}

func loadFileConfig(path string) (fileConfig, error) {
	var fc fileConfig
	if path == "" {
		return fc, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return fc, fmt.Errorf("could not read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fc, fmt.Errorf("could not parse %s: %w", path, err)
	}
	return fc, nil
}

func stringSetting(c *cli.Context, name, fileValue string) string {
	if c.IsSet(name) || fileValue == "" {
		return c.String(name)
	}
	return fileValue
}

func float64Setting(c *cli.Context, name string, fileValue float64) float64 {
	if c.IsSet(name) || fileValue == 0 {
		return c.Float64(name)
	}
	return fileValue
}
