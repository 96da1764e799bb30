package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/techsched/core/region"
	"github.com/kilianp07/techsched/core/scheduler"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `scheduler:
  default_technicians: 3
  tie_break: input
store:
  path: /var/lib/techsched/faults.db
directory:
  students:
    - id: "s1"
      fname: Noa
      lname: Levi
      school_name: Ramon
regions:
  schools:
    Ramon: Lowland
http:
  addr: "127.0.0.1:8080"
notify:
  publishers:
    - type: mqtt
      conf:
        broker: "tcp://localhost:1883"
        topic_prefix: schools
        qos:
          assignment: 1
    - type: kafka
      conf:
        brokers: ["localhost:9092"]
metrics:
  prometheus_addr: ":9100"
  sinks:
    - type: "nop"
runlog:
  backend: rotating
  path: /var/log/techsched/runs.jsonl
sentry:
  dsn: "https://key@sentry.example.com/1"
  traces_sample_rate: 0.1
logging:
  level: debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"default_technicians", cfg.Scheduler.DefaultTechnicians, 3},
		{"tie_break", cfg.Scheduler.TieBreak, scheduler.TieBreakInput},
		{"store.path", cfg.Store.Path, "/var/lib/techsched/faults.db"},
		{"students", len(cfg.Directory.Students), 1},
		{"student school", cfg.Directory.Students[0].SchoolName, "Ramon"},
		{"student fname", cfg.Directory.Students[0].FirstName, "Noa"},
		{"http.addr", cfg.HTTP.Addr, "127.0.0.1:8080"},
		{"publishers", len(cfg.Notify.Publishers), 2},
		{"publisher type", cfg.Notify.Publishers[0].Type, "mqtt"},
		{"publisher broker", cfg.Notify.Publishers[0].Conf["broker"], "tcp://localhost:1883"},
		{"kafka publisher", cfg.Notify.Publishers[1].Type, "kafka"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"prometheus_addr", cfg.Metrics.PrometheusAddr, ":9100"},
		{"runlog.backend", cfg.RunLog.Backend, "rotating"},
		{"runlog.max_backups default", cfg.RunLog.MaxBackups, 5},
		{"sentry.dsn", cfg.Sentry.DSN, "https://key@sentry.example.com/1"},
		{"sentry.rate", cfg.Sentry.TracesSampleRate, 0.1},
		{"logging.level", cfg.Logging.Level, "debug"},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}

	table, err := cfg.Regions.Table()
	require.NoError(t, err)
	assert.Equal(t, "Lowland", table.Region("Ramon"))
	assert.Equal(t, region.Unknown, table.Region("Elsewhere"))
}

func TestLoadDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Scheduler.DefaultTechnicians)
	assert.Equal(t, scheduler.TieBreakSchoolName, cfg.Scheduler.TieBreak)
	assert.Equal(t, "faults_system.db", cfg.Store.Path)
	assert.Equal(t, ":5000", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Notify.Publishers)
	assert.Zero(t, cfg.Directory.RefreshInterval())
	assert.Equal(t, Default(), cfg)
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeFile(t, "config.yaml", "store:\n  path: a.db\n")
	t.Setenv("K_STORE__PATH", "b.db")
	t.Setenv("K_SCHEDULER__DEFAULT_TECHNICIANS", "4")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "b.db", cfg.Store.Path)
	assert.Equal(t, 4, cfg.Scheduler.DefaultTechnicians)
}

func TestLoadEnvWithoutFile(t *testing.T) {
	t.Setenv("K_STORE__PATH", "env.db")
	t.Setenv("K_HTTP__ADDR", "127.0.0.1:9000")
	t.Setenv("K_SCHEDULER__TIE_BREAK", "input")
	cfg, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.Store.Path)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, scheduler.TieBreakInput, cfg.Scheduler.TieBreak)
	assert.Equal(t, 1, cfg.Scheduler.DefaultTechnicians)

	t.Setenv("K_LOGGING__LEVEL", "loud")
	_, err = LoadEnv()
	assert.Error(t, err)
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "store.path", envKey("K_STORE__PATH"))
	assert.Equal(t, "scheduler.default_technicians", envKey("K_SCHEDULER__DEFAULT_TECHNICIANS"))
	assert.Equal(t, "runlog.max_size_mb", envKey("K_RUNLOG__MAX_SIZE_MB"))
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"tie break":        "scheduler:\n  tie_break: random\n",
		"technicians":      "scheduler:\n  default_technicians: -2\n",
		"mqtt broker":      "notify:\n  publishers:\n    - type: mqtt\n",
		"kafka brokers":    "notify:\n  publishers:\n    - type: kafka\n",
		"publisher type":   "notify:\n  publishers:\n    - type: pager\n",
		"log level":        "logging:\n  level: loud\n",
		"http addr":        "http:\n  addr: nope\n",
		"duplicate":        "directory:\n  students:\n    - id: a\n    - id: a\n",
		"negative refresh": "directory:\n  refresh_interval_seconds: -1\n",
		"runlog backend":   "runlog:\n  backend: mongo\n",
		"sentry rate":      "sentry:\n  traces_sample_rate: 2\n",
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", data))
			assert.Error(t, err)
		})
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := Load(writeFile(t, "config.toml", ""))
	assert.ErrorContains(t, err, "unsupported config format")
}

func TestRegionsFileMerge(t *testing.T) {
	file := writeFile(t, "regions.yaml", "schools:\n  Asif: North\n  Ramon: Lowland\n")
	cfg := RegionsConfig{File: file, Schools: map[string]string{"Ramon": "South"}}
	table, err := cfg.Table()
	require.NoError(t, err)
	assert.Equal(t, "North", table.Region("Asif"))
	assert.Equal(t, "South", table.Region("Ramon"))

	_, err = RegionsConfig{File: filepath.Join(t.TempDir(), "missing.yaml")}.Table()
	assert.Error(t, err)
}
