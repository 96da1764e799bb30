package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/techsched/core/scheduler"
	"github.com/kilianp07/techsched/infra/runlog"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := "store:\n  path: " + filepath.Join(dir, "faults.db") + "\n" +
		"scheduler:\n  default_technicians: 3\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetArgs(nil)
		scheduleTechnicians, scheduleFormat = 0, "json"
		faultsTechnician, faultsStatus = "", ""
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestScheduleCommandEmptyStore(t *testing.T) {
	path := writeConfig(t)
	out, err := execute(t, "schedule", "--config", path, "--format", "json")
	require.NoError(t, err)

	var res scheduler.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Scheduled)
	assert.Equal(t, 3, res.Technicians)
}

func TestScheduleCommandRecordsRun(t *testing.T) {
	dir := t.TempDir()
	runs := filepath.Join(dir, "runs.jsonl")
	path := filepath.Join(dir, "config.yaml")
	body := "store:\n  path: " + filepath.Join(dir, "faults.db") + "\n" +
		"runlog:\n  backend: jsonl\n  path: " + runs + "\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	_, err := execute(t, "schedule", "--config", path, "-n", "2")
	require.NoError(t, err)

	data, err := os.ReadFile(runs)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1, "the run is flushed to history before the command exits")
	var rec runlog.Record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, 2, rec.Technicians)
	assert.False(t, rec.Scheduled)
}

func TestScheduleCommandRejectsBadInput(t *testing.T) {
	path := writeConfig(t)
	_, err := execute(t, "schedule", "--config", path, "--technicians", "0")
	assert.ErrorIs(t, err, scheduler.ErrInvalidTechnicianCount)

	_, err = execute(t, "schedule", "--config", path, "--format", "xml")
	assert.Error(t, err)
}

func TestFaultsTransitionUnknownFault(t *testing.T) {
	path := writeConfig(t)
	_, err := execute(t, "faults", "transition", "42", "Resolved", "--config", path)
	assert.Error(t, err)

	_, err = execute(t, "faults", "transition", "42", "Bogus", "--config", path)
	assert.Error(t, err)
}

func TestMissingExplicitConfig(t *testing.T) {
	_, err := execute(t, "schedule", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
