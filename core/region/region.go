// Package region maps school names to the coarse geographic regions used to
// cluster technician work.
package region

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Unknown is returned for schools missing from the lookup table.
const Unknown = "Unknown"

// Resolver returns the region of a school.
type Resolver interface {
	Region(school string) string
}

// Table is a static school to region lookup.
type Table map[string]string

// Region implements Resolver. Empty or unmapped names resolve to Unknown.
func (t Table) Region(school string) string {
	if r, ok := t[strings.TrimSpace(school)]; ok && r != "" {
		return r
	}
	return Unknown
}

// Regions returns the distinct region names in the table.
func (t Table) Regions() []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range t {
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// Merge returns a new table with the entries of other overriding t.
func (t Table) Merge(other Table) Table {
	out := make(Table, len(t)+len(other))
	for k, v := range t {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

type tableFile struct {
	Schools map[string]string `json:"schools" yaml:"schools"`
}

// LoadTable reads a lookup table from a JSON or YAML file.
func LoadTable(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return DecodeTable(f, ext)
}

// DecodeTable reads a lookup table from r in the given format.
func DecodeTable(r io.Reader, format string) (Table, error) {
	var tf tableFile
	switch strings.ToLower(format) {
	case "yaml", "yml":
		if err := yaml.NewDecoder(r).Decode(&tf); err != nil {
			return nil, err
		}
	case "json":
		if err := json.NewDecoder(r).Decode(&tf); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	t := make(Table, len(tf.Schools))
	for school, reg := range tf.Schools {
		t[strings.TrimSpace(school)] = strings.TrimSpace(reg)
	}
	return t, nil
}
