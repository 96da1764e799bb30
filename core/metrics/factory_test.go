package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/techsched/core/factory"
	metrics "github.com/kilianp07/techsched/core/metrics"
	inframetrics "github.com/kilianp07/techsched/infra/metrics"
)

func TestSinkTypes(t *testing.T) {
	assert.Equal(t, []string{"influx", "nop", "prometheus"}, metrics.SinkTypes())
}

func TestNewMetricsSinkShapes(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "got %T", s)
	assert.Len(t, m.Sinks, 2)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "statsd"}})
	assert.ErrorContains(t, err, "module 1 (statsd)")
}

func TestPrometheusSinkNamespace(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "prometheus",
		Conf: map[string]any{"namespace": "sinkcfg"},
	}})
	require.NoError(t, err)
	require.IsType(t, &inframetrics.PromSink{}, s)
	require.NoError(t, s.RecordScheduleRun(metrics.ScheduleRunEvent{Scheduled: true, Faults: 3}))

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["sinkcfg_schedule_runs_total"])
	assert.True(t, names["sinkcfg_schedule_open_faults"])

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "prometheus",
		Conf: map[string]any{"namespace": []string{"not", "a", "string"}},
	}})
	assert.Error(t, err)
}

func influxServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			hits.Add(1)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestInfluxSinkFromConf(t *testing.T) {
	srv, hits := influxServer(t, http.StatusOK, `{"name":"influxdb","status":"pass"}`)
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": srv.URL, "token": "t", "org": "district", "bucket": "schedules"},
	}})
	require.NoError(t, err)
	sink, ok := s.(*inframetrics.InfluxSink)
	require.True(t, ok, "got %T", s)
	sink.Close()
	assert.Equal(t, int32(1), hits.Load())

	down, _ := influxServer(t, http.StatusServiceUnavailable, `{"name":"influxdb","status":"fail"}`)
	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": down.URL, "bucket": "schedules"},
	}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s, "unhealthy instance falls back to nop")

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "influx", Conf: map[string]any{"bucket": "b"}}})
	assert.ErrorContains(t, err, "url is required")
	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "influx", Conf: map[string]any{"url": srv.URL}}})
	assert.ErrorContains(t, err, "bucket is required")
}
