// Package mqtt defines the contract for publishing forecasts to a broker.
package mqtt

import (
	"context"
	"errors"
	"strings"

	"github.com/kilianp07/forecast/core/events"
	"github.com/kilianp07/forecast/pkg/export"
)

// ErrPublish is returned when a message could not be delivered after all retries.
var ErrPublish = errors.New("mqtt: publish failed")

// ForecastMessage is the JSON payload published for a forecast.
type ForecastMessage struct {
	MessageID string         `json:"message_id"`
	RunID     string         `json:"run_id"`
	Model     string         `json:"model"`
	Dataset   string         `json:"dataset,omitempty"`
	Rows      []export.Row   `json:"rows"`
	Scores    []events.Score `json:"scores,omitempty"`
	Timestamp int64          `json:"timestamp"`
}

// Publisher sends forecasts to a message broker.
type Publisher interface {
	// PublishForecast publishes msg and returns the message identifier.
	PublishForecast(ctx context.Context, msg ForecastMessage) (string, error)
	Disconnect()
}

var topicReplacer = strings.NewReplacer("/", "_", "+", "_", "#", "_", " ", "_")

// ForecastTopic returns "<prefix>/<model>/forecast" with MQTT wildcards and
// separators in the model name replaced.
func ForecastTopic(prefix, model string) string {
	if model == "" {
		model = "unknown"
	}
	return strings.TrimSuffix(prefix, "/") + "/" + topicReplacer.Replace(model) + "/forecast"
}
