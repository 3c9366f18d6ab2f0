// Package config parses the engine's YAML-driven run configuration,
// mirroring database.ParseGeneratorConfig's file/string/merge shape.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StoreConfig selects and configures the metadata/data store backend.
type StoreConfig struct {
	Kind   string `yaml:"kind"` // "memory" or "sql"
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LoaderConfig selects and configures the table loader backend.
type LoaderConfig struct {
	Kind    string `yaml:"kind"` // "memory", "file", "sql", "http"
	BaseDir string `yaml:"base_dir"`
}

// WriterConfig selects and configures the output writer backend.
type WriterConfig struct {
	Kind    string `yaml:"kind"` // "file", "sql"
	BaseDir string `yaml:"base_dir"`
}

// Config is the engine's top-level run configuration.
type Config struct {
	Store          StoreConfig  `yaml:"store"`
	Loader         LoaderConfig `yaml:"loader"`
	Writer         WriterConfig `yaml:"writer"`
	ProjectID      string       `yaml:"project_id"`
	RequestPeriod  string       `yaml:"request_period"`
}

// ParseConfigString parses config from an in-memory YAML document.
func ParseConfigString(yamlString string) (Config, error) {
	if yamlString == "" {
		return Config{}, nil
	}
	return parseFromBytes([]byte(yamlString))
}

// ParseConfig loads config from a YAML file on disk.
func ParseConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return parseFromBytes(buf)
}

func parseFromBytes(buf []byte) (Config, error) {
	var c Config
	if err := yaml.Unmarshal(buf, &c); err != nil {
		return Config{}, fmt.Errorf("config: parse yaml: %w", err)
	}
	return c, nil
}

// Merge overlays override's non-zero fields onto base, the way
// database.MergeGeneratorConfig layers CLI flags over a config file.
func Merge(base, override Config) Config {
	result := base
	if override.Store.Kind != "" {
		result.Store = override.Store
	}
	if override.Loader.Kind != "" {
		result.Loader = override.Loader
	}
	if override.Writer.Kind != "" {
		result.Writer = override.Writer
	}
	if override.ProjectID != "" {
		result.ProjectID = override.ProjectID
	}
	if override.RequestPeriod != "" {
		result.RequestPeriod = override.RequestPeriod
	}
	return result
}
