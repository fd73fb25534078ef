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

	coremetrics "github.com/kilianp07/forecast/core/metrics"
	"github.com/kilianp07/forecast/infra/logger"
)

// InfluxConfig holds the InfluxDB connection parameters.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes forecasting events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
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

func (s *InfluxSink) write(p *write.Point) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordScore writes one accuracy score.
func (s *InfluxSink) RecordScore(ev coremetrics.ScoreEvent) error {
	p := write.NewPointWithMeasurement("forecast_score").
		AddTag("model", ev.Model).
		AddTag("dataset", ev.Dataset).
		AddTag("metric", ev.Metric).
		AddTag("quantile", strconv.FormatFloat(ev.Quantile, 'f', -1, 64))
	if ev.RunID != "" {
		p = p.AddTag("run_id", ev.RunID)
	}
	p = p.AddField("value", ev.Value).SetTime(ev.Time)
	return s.write(p)
}

// RecordFit writes the fit duration and input shape.
func (s *InfluxSink) RecordFit(ev coremetrics.FitEvent) error {
	p := write.NewPointWithMeasurement("forecast_fit").
		AddTag("model", ev.Model).
		AddTag("component", "forecasting").
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("length", ev.Length).
		AddField("width", ev.Width).
		AddField("errors", ev.Err).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordPredict writes the prediction duration and request size.
func (s *InfluxSink) RecordPredict(ev coremetrics.PredictEvent) error {
	p := write.NewPointWithMeasurement("forecast_predict").
		AddTag("model", ev.Model).
		AddTag("component", "forecasting").
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		AddField("horizon", ev.Horizon).
		AddField("num_samples", ev.NumSamples).
		AddField("errors", ev.Err).
		SetTime(ev.Time)
	return s.write(p)
}

// RecordCheck writes a harness check outcome.
func (s *InfluxSink) RecordCheck(ev coremetrics.CheckEvent) error {
	p := write.NewPointWithMeasurement("forecast_check").
		AddTag("run_id", ev.RunID).
		AddTag("case", ev.Case).
		AddTag("dataset", ev.Dataset).
		AddTag("check", ev.Check).
		AddTag("passed", strconv.FormatBool(ev.Passed)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.write(p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
