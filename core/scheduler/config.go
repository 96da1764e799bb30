package scheduler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// TieBreak selects how schools with equal priority scores are ordered.
type TieBreak string

const (
	// TieBreakSchoolName orders equal scores by ascending school name.
	TieBreakSchoolName TieBreak = "school_name"
	// TieBreakInput keeps the first-seen order of the fault snapshot.
	TieBreakInput TieBreak = "input"
)

// Config defines scheduling parameters loaded from configuration.
type Config struct {
	DefaultTechnicians int      `json:"default_technicians" yaml:"default_technicians"`
	TieBreak           TieBreak `json:"tie_break" yaml:"tie_break"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.DefaultTechnicians == 0 {
		c.DefaultTechnicians = 1
	}
	if c.TieBreak == "" {
		c.TieBreak = TieBreakSchoolName
	}
}

// Validate checks the configured values.
func (c Config) Validate() error {
	if c.DefaultTechnicians < 1 {
		return fmt.Errorf("default_technicians must be positive, got %d", c.DefaultTechnicians)
	}
	switch c.TieBreak {
	case TieBreakSchoolName, TieBreakInput:
	default:
		return fmt.Errorf("unknown tie_break %q", c.TieBreak)
	}
	return nil
}

// LoadConfig loads Config from a JSON or YAML file.
func LoadConfig(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var cfg Config
	switch ext {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(b, &cfg)
	case ".json":
		err = json.Unmarshal(b, &cfg)
	default:
		return Config{}, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err != nil {
		return Config{}, err
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}

// DecodeConfig reads from r to decode a Config.
func DecodeConfig(r io.Reader, format string) (Config, error) {
	var cfg Config
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported format: %s", format)
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}
