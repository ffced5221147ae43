// Package config reads the optional defaults file. Flags given on the
// command line always win over anything set here.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultFileName is looked for in the working directory when no --config
// flag is given.
const DefaultFileName = ".stmerge.yaml"

// Config holds per-run defaults.
type Config struct {
	IndexPath string `yaml:"index_path,omitempty"`
	Output    string `yaml:"output,omitempty"`
	LogFile   string `yaml:"log_file,omitempty"`
	Verbose   bool   `yaml:"verbose,omitempty"`
}

// Load reads a defaults file from an explicit path. The file must exist.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a flag
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault reads DefaultFileName from the working directory. A missing
// file is not an error; it yields an empty Config.
func LoadDefault() (*Config, error) {
	cfg, err := Load(DefaultFileName)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
