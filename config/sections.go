package config

import (
	"fmt"
	"net"
	"time"

	"github.com/kilianp07/techsched/core/model"
	"github.com/kilianp07/techsched/core/region"
)

// StoreConfig locates the SQLite fault database.
type StoreConfig struct {
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *StoreConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "faults_system.db"
	}
}

// Validate checks mandatory fields.
func (c StoreConfig) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

// DirectoryConfig selects the student directory. With a DSN students are read
// from PostgreSQL, otherwise the static Students list is served.
type DirectoryConfig struct {
	DSN                    string          `json:"dsn"`
	RefreshIntervalSeconds int             `json:"refresh_interval_seconds"`
	Students               []model.Student `json:"students"`
}

// SetDefaults applies sane defaults.
func (c *DirectoryConfig) SetDefaults() {
	if c.RefreshIntervalSeconds == 0 && c.DSN != "" {
		c.RefreshIntervalSeconds = 3600
	}
}

// Validate checks the configured values.
func (c DirectoryConfig) Validate() error {
	if c.RefreshIntervalSeconds < 0 {
		return fmt.Errorf("refresh_interval_seconds must not be negative")
	}
	seen := make(map[string]struct{}, len(c.Students))
	for _, s := range c.Students {
		if s.ID == "" {
			return fmt.Errorf("static student without id")
		}
		if _, dup := seen[s.ID]; dup {
			return fmt.Errorf("duplicate student id %q", s.ID)
		}
		seen[s.ID] = struct{}{}
	}
	return nil
}

// RefreshInterval returns the cache refresh period.
func (c DirectoryConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalSeconds) * time.Second
}

// RegionsConfig holds the school to region lookup. Entries in Schools
// override those read from File.
type RegionsConfig struct {
	File    string            `json:"file"`
	Schools map[string]string `json:"schools"`
}

// Table builds the lookup table.
func (c RegionsConfig) Table() (region.Table, error) {
	t := region.Table{}
	if c.File != "" {
		ft, err := region.LoadTable(c.File)
		if err != nil {
			return nil, fmt.Errorf("regions file: %w", err)
		}
		t = ft
	}
	return t.Merge(region.Table(c.Schools)), nil
}

// HTTPConfig configures the API listener.
type HTTPConfig struct {
	Addr string `json:"addr"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":5000"
	}
}

// Validate checks the listen address.
func (c HTTPConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.Addr); err != nil {
		return fmt.Errorf("invalid addr %q: %w", c.Addr, err)
	}
	return nil
}
