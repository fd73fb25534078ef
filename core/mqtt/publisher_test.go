package mqtt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForecastTopic(t *testing.T) {
	tests := []struct {
		prefix, model, want string
	}{
		{"forecast", "random_forest", "forecast/random_forest/forecast"},
		{"site/a/", "arima", "site/a/arima/forecast"},
		{"forecast", "rf/#+ x", "forecast/rf____x/forecast"},
		{"forecast", "", "forecast/unknown/forecast"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ForecastTopic(tt.prefix, tt.model))
	}
}
