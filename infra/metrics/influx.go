package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/techsched/core/metrics"
	"github.com/kilianp07/techsched/infra/logger"
)

// InfluxSink writes scheduling events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordScheduleRun writes one schedule_run point.
func (s *InfluxSink) RecordScheduleRun(ev coremetrics.ScheduleRunEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("schedule_run").
		AddTag("run_id", ev.RunID).
		AddTag("outcome", ev.Outcome()).
		AddField("technicians", ev.Technicians).
		AddField("schools", ev.Schools).
		AddField("faults", ev.Faults).
		AddField("urgent", ev.Urgent).
		AddField("duration_ms", round3(float64(ev.Duration)/float64(time.Millisecond))).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTechnicianLoad writes one technician_load point per technician.
func (s *InfluxSink) RecordTechnicianLoad(loads []coremetrics.TechnicianLoad) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, l := range loads {
		p := write.NewPointWithMeasurement("technician_load").
			AddTag("run_id", l.RunID).
			AddTag("technician", strconv.Itoa(l.TechnicianID)).
			AddField("schools", l.Schools).
			AddField("faults", l.Faults).
			AddField("score", round3(l.Score)).
			AddField("regions", strings.Join(l.Regions, ",")).
			SetTime(l.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordFaultTransition writes a fault_transition point.
func (s *InfluxSink) RecordFaultTransition(ev coremetrics.FaultTransitionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("fault_transition").
		AddTag("fault_id", ev.FaultID).
		AddTag("from", ev.From).
		AddTag("to", ev.To).
		AddField("technician", ev.Technician).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
