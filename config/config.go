package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/techsched/core/metrics"
	"github.com/kilianp07/techsched/core/scheduler"
	"github.com/kilianp07/techsched/infra/monitoring"
	"github.com/kilianp07/techsched/infra/notify"
	"github.com/kilianp07/techsched/infra/runlog"
)

type Config struct {
	Scheduler scheduler.Config        `json:"scheduler"`
	Store     StoreConfig             `json:"store"`
	Directory DirectoryConfig         `json:"directory"`
	Regions   RegionsConfig           `json:"regions"`
	HTTP      HTTPConfig              `json:"http"`
	Notify    notify.Config           `json:"notify"`
	Metrics   metrics.Config          `json:"metrics"`
	RunLog    runlog.Config           `json:"runlog"`
	Sentry    monitoring.SentryConfig `json:"sentry"`
	Logging   LoggingConfig           `json:"logging"`
}

// EnvPrefix marks environment variables that override configuration keys.
// Nested keys are separated by a double underscore: K_STORE__PATH sets
// store.path.
const EnvPrefix = "K_"

// Load reads a YAML or JSON file, applies environment overrides and
// validates every section.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	return finish(k)
}

// LoadEnv builds the configuration from defaults and environment overrides
// alone, used when no config file exists.
func LoadEnv() (*Config, error) {
	return finish(koanf.New("."))
}

func finish(k *koanf.Koanf) (*Config, error) {
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps K_SCHEDULER__DEFAULT_TECHNICIANS to scheduler.default_technicians.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Default returns a configuration with every default applied, used when no
// config file is given.
func Default() *Config {
	var cfg Config
	cfg.SetDefaults()
	return &cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Scheduler.SetDefaults()
	c.Store.SetDefaults()
	c.Directory.SetDefaults()
	c.HTTP.SetDefaults()
	c.RunLog.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks every section.
func (c Config) Validate() error {
	validators := []struct {
		name string
		fn   func() error
	}{
		{"scheduler", c.Scheduler.Validate},
		{"store", c.Store.Validate},
		{"directory", c.Directory.Validate},
		{"http", c.HTTP.Validate},
		{"notify", c.Notify.Validate},
		{"runlog", c.RunLog.Validate},
		{"sentry", c.Sentry.Validate},
		{"logging", c.Logging.Validate},
	}
	for _, v := range validators {
		if err := v.fn(); err != nil {
			return fmt.Errorf("%s: %w", v.name, err)
		}
	}
	return nil
}
