//go:build integration

package metrics

import (
	"context"
	"fmt"
	"os/exec"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremetrics "github.com/kilianp07/forecast/core/metrics"
)

const (
	itOrg    = "forecast_org"
	itBucket = "forecast_bucket"
	itToken  = "forecast-token"
)

// startInflux starts an InfluxDB 2.7 container with an initialised
// organisation and bucket and returns its base URL.
func startInflux(t *testing.T) string {
	t.Helper()
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skipf("docker not installed: %v", err)
	}
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "forecast",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "forecast-password",
			"DOCKER_INFLUXDB_INIT_ORG":         itOrg,
			"DOCKER_INFLUXDB_INIT_BUCKET":      itBucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": itToken,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(60 * time.Second),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	t.Cleanup(func() {
		if err := cont.Terminate(ctx); err != nil {
			t.Errorf("terminate influx: %v", err)
		}
	})
	host, err := cont.Host(ctx)
	require.NoError(t, err)
	port, err := cont.MappedPort(ctx, "8086")
	require.NoError(t, err)
	return fmt.Sprintf("http://%s:%s", host, port.Port())
}

func TestInfluxSinkIntegration(t *testing.T) {
	url := startInflux(t)
	sink := NewInfluxSinkWithFallback(InfluxConfig{URL: url, Token: itToken, Org: itOrg, Bucket: itBucket})
	influx, ok := sink.(*InfluxSink)
	require.True(t, ok, "health check should pass against a running instance")
	defer influx.Close()

	now := time.Now()
	require.NoError(t, influx.RecordScore(coremetrics.ScoreEvent{
		RunID: "it", Model: "arima", Dataset: "constant", Metric: "mae", Quantile: 0.5, Value: 0.12, Time: now,
	}))
	require.NoError(t, influx.RecordCheck(coremetrics.CheckEvent{
		RunID: "it", Case: "arima", Dataset: "constant", Check: "accuracy", Passed: true, Duration: time.Second, Time: now,
	}))

	client := influxdb2.NewClient(url, itToken)
	defer client.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	flux := fmt.Sprintf(`from(bucket:"%s") |> range(start:-5m) |> filter(fn: (r) => r._measurement == "forecast_score")`, itBucket)
	res, err := client.QueryAPI(itOrg).Query(ctx, flux)
	require.NoError(t, err)
	defer res.Close()
	var values []float64
	for res.Next() {
		if v, ok := res.Record().Value().(float64); ok {
			values = append(values, v)
		}
		assert.Equal(t, "arima", res.Record().ValueByKey("model"))
	}
	require.NoError(t, res.Err())
	assert.Equal(t, []float64{0.12}, values)
}
