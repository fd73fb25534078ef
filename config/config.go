package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/forecast/core/factory"
	"github.com/kilianp07/forecast/core/metrics"
	"github.com/kilianp07/forecast/infra/datasource"
	"github.com/kilianp07/forecast/infra/mqtt"
	"github.com/kilianp07/forecast/infra/store"
)

// Config is the application configuration.
type Config struct {
	Data       datasource.Config    `json:"data"`
	Model      factory.ModuleConfig `json:"model"`
	Forecast   ForecastConfig       `json:"forecast"`
	Evaluation EvaluationConfig     `json:"evaluation"`
	Metrics    metrics.Config       `json:"metrics"`
	MQTT       mqtt.Config          `json:"mqtt"`
	Store      store.Config         `json:"store"`
	Logging    LoggingConfig        `json:"logging"`
	Sentry     SentryConfig         `json:"sentry"`
	Output     OutputConfig         `json:"output"`
}

// Load reads a YAML or JSON file, chosen by extension, and applies
// environment overrides: K_FORECAST__HORIZON=24 sets forecast.horizon.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	c.Data.SetDefaults()
	c.Forecast.SetDefaults()
	c.Evaluation.SetDefaults()
	c.Store.SetDefaults()
	c.Logging.SetDefaults()
	c.Output.SetDefaults()
	c.Sentry.SetDefaults()
	if c.MQTT.Broker != "" {
		c.MQTT.SetDefaults()
	}
}

// Validate checks every section. The data and model sections are only
// required by the predict command and are checked by ValidateForecast.
func (c Config) Validate() error {
	checks := []struct {
		name string
		err  error
	}{
		{"forecast", c.Forecast.Validate()},
		{"evaluation", c.Evaluation.Validate()},
		{"store", c.Store.Validate()},
		{"logging", c.Logging.Validate()},
		{"output", c.Output.Validate()},
		{"sentry", c.Sentry.Validate()},
	}
	if c.MQTT.Broker != "" {
		checks = append(checks, struct {
			name string
			err  error
		}{"mqtt", c.MQTT.Validate()})
	}
	for _, ch := range checks {
		if ch.err != nil {
			return fmt.Errorf("%s: %w", ch.name, ch.err)
		}
	}
	return nil
}

// ValidateForecast checks the sections needed to produce a forecast.
func (c Config) ValidateForecast() error {
	if err := c.Data.Validate(); err != nil {
		return fmt.Errorf("data: %w", err)
	}
	if c.Model.Type == "" {
		return fmt.Errorf("model: type is required")
	}
	return nil
}
