package engine

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the engine's yaml-backed configuration, grounded in
// funvibe-funxy's internal/ext.Config load/validate/defaults idiom
// (LoadConfig reads and parses, setDefaults fills in omitted fields).
type Config struct {
	// PreludePath, if set, names a Scheme source file read, compiled,
	// and evaluated against the root environment at Engine construction.
	PreludePath string `yaml:"prelude_path,omitempty"`

	// LogLevel is one of "debug", "info", "warn", "error". Defaults to
	// "info".
	LogLevel string `yaml:"log_level,omitempty"`
}

// LoadConfig reads and parses a YAML config file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return ParseConfig(data, path)
}

// ParseConfig parses config content from bytes. path is used only for
// error messages.
func ParseConfig(data []byte, path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}
