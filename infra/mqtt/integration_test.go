//go:build integration

package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	coremqtt "github.com/kilianp07/forecast/core/mqtt"
	"github.com/kilianp07/forecast/pkg/export"
)

// startMosquitto launches a disposable broker and returns its URL.
func startMosquitto(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		Cmd:          []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Errorf("failed to terminate container: %v", err)
		}
	})
	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "1883")
	require.NoError(t, err)
	return fmt.Sprintf("tcp://%s:%s", host, port.Port())
}

// TestIntegrationPublishForecast publishes a forecast to a real Mosquitto broker.
func TestIntegrationPublishForecast(t *testing.T) {
	broker := startMosquitto(t)

	sub := paho.NewClient(paho.NewClientOptions().AddBroker(broker).SetClientID("sub"))
	var tok paho.Token
	for i := 0; i < 5; i++ {
		tok = sub.Connect()
		if tok.Wait() && tok.Error() == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	require.NoError(t, tok.Error(), "failed to connect subscriber")
	defer sub.Disconnect(250)

	msgCh := make(chan []byte, 1)
	tok = sub.Subscribe("it/+/forecast", 1, func(_ paho.Client, m paho.Message) { msgCh <- m.Payload() })
	require.True(t, tok.WaitTimeout(5*time.Second))
	require.NoError(t, tok.Error())

	pub, err := NewPahoClient(Config{Broker: broker, ClientID: "pub", TopicPrefix: "it", QoS: map[string]byte{"forecast": 1}})
	require.NoError(t, err)
	defer pub.Disconnect()

	rows := []export.Row{{Component: "load", Mean: 2, Quantiles: []export.Quantile{{Q: 0.5, Value: 2}}}}
	id, err := pub.PublishForecast(context.Background(), coremqtt.ForecastMessage{Model: "random_forest", Rows: rows})
	require.NoError(t, err)

	select {
	case payload := <-msgCh:
		var msg coremqtt.ForecastMessage
		require.NoError(t, json.Unmarshal(payload, &msg))
		assert.Equal(t, id, msg.MessageID)
		assert.Equal(t, "random_forest", msg.Model)
		assert.Len(t, msg.Rows, 1)
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for forecast")
	}
}
