// Package e2e drives the assembled service against a real MQTT broker.
package e2e

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/techsched/app"
	"github.com/kilianp07/techsched/config"
	"github.com/kilianp07/techsched/core/factory"
	"github.com/kilianp07/techsched/core/model"
	"github.com/kilianp07/techsched/infra/notify"
	"github.com/kilianp07/techsched/infra/runlog"
	"github.com/kilianp07/techsched/internal/testutil"
)

type inbox struct {
	mu   sync.Mutex
	msgs map[string]notify.AssignmentMessage
}

func (b *inbox) handle(_ paho.Client, m paho.Message) {
	var msg notify.AssignmentMessage
	if err := json.Unmarshal(m.Payload(), &msg); err != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs[m.Topic()] = msg
}

func (b *inbox) snapshot() map[string]notify.AssignmentMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[string]notify.AssignmentMessage, len(b.msgs))
	for k, v := range b.msgs {
		out[k] = v
	}
	return out
}

func TestScheduleAndNotify(t *testing.T) {
	testutil.SkipIfShort(t)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker, cleanup, err := testutil.StartMosquitto(ctx)
	if err != nil {
		t.Skipf("unable to start mosquitto: %v", err)
	}
	defer cleanup()

	box := &inbox{msgs: map[string]notify.AssignmentMessage{}}
	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("e2e-sub"))
	tok := sub.Connect()
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())
	defer sub.Disconnect(100)
	tok = sub.Subscribe("e2e/technician/+/assignment", 1, box.handle)
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())

	dir := t.TempDir()
	cfg := config.Default()
	cfg.Store.Path = filepath.Join(dir, "faults.db")
	cfg.Directory.Students = []model.Student{
		{ID: "s1", FirstName: "Noa", SchoolName: "Asif"},
		{ID: "s2", FirstName: "Ari", SchoolName: "Ramon"},
		{ID: "s3", FirstName: "Tal", SchoolName: "Shaked"},
	}
	cfg.Regions.Schools = map[string]string{"Asif": "North", "Ramon": "Lowland", "Shaked": "North"}
	cfg.Notify.Publishers = []factory.ModuleConfig{{
		Type: "mqtt",
		Conf: map[string]any{"broker": broker, "client_id": "e2e-pub", "topic_prefix": "e2e"},
	}}
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	cfg.RunLog = runlog.Config{Backend: "sqlite", Path: filepath.Join(dir, "runs.db")}

	svc, err := app.New(ctx, cfg)
	require.NoError(t, err)
	defer func() { _ = svc.Close() }()
	svc.Start(ctx)

	api := httptest.NewServer(svc.Handler())
	defer api.Close()
	prom := httptest.NewServer(promhttp.Handler())
	defer prom.Close()

	for _, body := range []string{
		`{"student_id":"s1","fault_type":"lock_malfunction"}`,
		`{"student_id":"s2","fault_type":"books_stuck"}`,
		`{"student_id":"s3","fault_type":"door_damage"}`,
		`{"student_id":"ghost","fault_type":"other"}`,
	} {
		resp, err := http.Post(api.URL+"/api/faults", "application/json", strings.NewReader(body))
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, err := http.Post(api.URL+"/api/schedule", "application/json", strings.NewReader(`{"num_technicians":2}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res struct {
		RunID       string `json:"run_id"`
		Assignments []struct {
			TechnicianID int      `json:"technician_id"`
			Regions      []string `json:"regions"`
		} `json:"assignments"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	require.Len(t, res.Assignments, 2)
	assert.Equal(t, []string{"Lowland", "Unknown"}, res.Assignments[0].Regions)
	assert.Equal(t, []string{"North"}, res.Assignments[1].Regions)

	require.Eventually(t, func() bool { return len(box.snapshot()) == 2 }, 10*time.Second, 50*time.Millisecond)
	msgs := box.snapshot()
	north := msgs["e2e/technician/2/assignment"]
	assert.Equal(t, res.RunID, north.RunID)
	assert.Equal(t, 2, north.TotalFaults)

	mctx, mcancel := context.WithTimeout(ctx, testutil.MetricTimeout)
	defer mcancel()
	require.NoError(t, testutil.WaitForMetric(mctx, prom.URL, `schedule_runs_total{outcome="scheduled"} 1`))

	require.Eventually(t, func() bool {
		runs, err := svc.Runs(ctx, runlog.Query{TechnicianID: 2, School: "Shaked"})
		return err == nil && len(runs) == 1
	}, 5*time.Second, 50*time.Millisecond)
}
