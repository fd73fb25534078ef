package mqtt

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	coremqtt "github.com/kilianp07/forecast/core/mqtt"
)

// Publisher mirrors the core mqtt.Publisher interface.
type Publisher = coremqtt.Publisher

// MockPublisher is a simple publisher used in tests.
type MockPublisher struct {
	Messages   []coremqtt.ForecastMessage
	FailModels map[string]bool
	mu         sync.Mutex
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{FailModels: make(map[string]bool)}
}

// PublishForecast records the message or returns an error if configured to fail.
func (m *MockPublisher) PublishForecast(_ context.Context, msg coremqtt.ForecastMessage) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailModels[msg.Model] {
		return "", fmt.Errorf("%w: %s", coremqtt.ErrPublish, msg.Model)
	}
	if msg.MessageID == "" {
		msg.MessageID = uuid.NewString()
	}
	m.Messages = append(m.Messages, msg)
	return msg.MessageID, nil
}

// Published returns a copy of the recorded messages.
func (m *MockPublisher) Published() []coremqtt.ForecastMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]coremqtt.ForecastMessage(nil), m.Messages...)
}

// Disconnect is a no-op.
func (m *MockPublisher) Disconnect() {}
