// Package config loads the checklog configuration file, which holds named
// check definitions so supervisors and humans can invoke `checklog check
// @name` instead of repeating a long flag list.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// CheckSpec is a named check definition. Every field corresponds to a
// `check` flag; flags given on the command line override these values.
type CheckSpec struct {
	File          string   `yaml:"file"`
	GlobSuffix    string   `yaml:"glob_suffix,omitempty"`
	ReferenceTime string   `yaml:"reference_time,omitempty"`
	Select        string   `yaml:"select,omitempty"`
	Patterns      []string `yaml:"patterns,omitempty"`
	PatternFile   string   `yaml:"pattern_file,omitempty"`
	Whitelist     []string `yaml:"whitelist,omitempty"`
	WhitelistFile string   `yaml:"whitelist_file,omitempty"`
	MatchAll      bool     `yaml:"match_all,omitempty"` // AND-combine patterns
	NoCase        bool     `yaml:"no_case,omitempty"`
	Warning       string   `yaml:"warning,omitempty"`
	Critical      string   `yaml:"critical,omitempty"`
	Negate        bool     `yaml:"negate,omitempty"`
	AlwaysOK      bool     `yaml:"always_ok,omitempty"`
	Report        string   `yaml:"report,omitempty"`
	ReportMax     int      `yaml:"report_max,omitempty"`
	Before        int      `yaml:"context_before,omitempty"`
	After         int      `yaml:"context_after,omitempty"`
	Classifier    string   `yaml:"classifier,omitempty"`
	Escalate      bool     `yaml:"escalate,omitempty"`
	SeekDir       string   `yaml:"seek_dir,omitempty"`
	Tag           string   `yaml:"tag,omitempty"`
	Freshness     int      `yaml:"freshness_seconds,omitempty"`
	MissingState  string   `yaml:"missing_state,omitempty"`
	MissingText   string   `yaml:"missing_message,omitempty"`
	Timeout       string   `yaml:"timeout,omitempty"`
	Encoding      string   `yaml:"encoding,omitempty"`
	NormalizeCRLF bool     `yaml:"normalize_crlf,omitempty"`
}

// Config is the checklog configuration file schema.
type Config struct {
	// Checks maps alias names to check definitions.
	Checks map[string]CheckSpec `yaml:"checks"`

	// SeekDir is the default seek-state directory for all checks.
	SeekDir string `yaml:"seek_dir"`
}

// Path returns the default config file location.
func Path() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".checklog", "config.yaml")
}

// Load reads the config from path, or from the default location when path
// is empty. A missing file yields an empty config, not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{Checks: make(map[string]CheckSpec)}

	if path == "" {
		path = Path()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.Checks == nil {
		cfg.Checks = make(map[string]CheckSpec)
	}
	return cfg, nil
}

// Lookup resolves a check alias.
func (c *Config) Lookup(name string) (CheckSpec, bool) {
	spec, ok := c.Checks[name]
	return spec, ok
}
