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

	coremetrics "github.com/kilianp07/rota/core/metrics"
	"github.com/kilianp07/rota/infra/logger"
)

// InfluxSink writes roster outcomes to an InfluxDB instance using the official client.
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

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordMonth writes one roster_month point.
func (s *InfluxSink) RecordMonth(rec coremetrics.MonthRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("roster_month").
		AddTag("run_id", rec.RunID).
		AddTag("month", rec.Month.String()).
		AddTag("status", rec.Status)
	if rec.Phase != "" {
		p = p.AddTag("phase", rec.Phase).
			AddTag("separation", strconv.Itoa(rec.Separation))
	}
	p = p.AddField("attempts", rec.Attempts).
		AddField("nodes", rec.Nodes).
		AddField("duration_ms", round3(rec.Duration.Seconds()*1000)).
		AddField("assignments", rec.Assignments).
		AddField("base_objective", round3(rec.BaseObjective)).
		AddField("fairness_objective", round3(rec.FairnessObjective)).
		AddField("conflicts", rec.Conflicts).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRun writes one roster_run point.
func (s *InfluxSink) RecordRun(rec coremetrics.RunRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("roster_run").
		AddTag("run_id", rec.RunID).
		AddTag("from", rec.From.String()).
		AddTag("to", rec.To.String()).
		AddTag("failed", strconv.FormatBool(rec.Failed)).
		AddField("solved", rec.Solved).
		AddField("infeasible", rec.Infeasible).
		AddField("duration_ms", round3(rec.Duration.Seconds()*1000)).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordFairness writes one roster_fairness point per worker.
func (s *InfluxSink) RecordFairness(recs []coremetrics.FairnessRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	now := time.Now()
	for _, r := range recs {
		p := write.NewPointWithMeasurement("roster_fairness").
			AddTag("run_id", r.RunID).
			AddTag("month", r.Month.String()).
			AddTag("worker_id", r.WorkerID).
			AddField("actual_free", round3(r.ActualFree)).
			AddField("target_free", round3(r.TargetFree)).
			SetTime(now)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
