package evaluation

import (
	"fmt"

	"github.com/kilianp07/forecast/core/factory"
	"github.com/kilianp07/forecast/core/forecasting"
)

// CaseConfig declares a case from a model module configuration.
type CaseConfig struct {
	Name     string               `json:"name"`
	Model    factory.ModuleConfig `json:"model"`
	MaxError float64              `json:"max_error"`
}

// DefaultCaseConfigs are the cases run when none are configured. Every
// check of every case passes on ConstantDatasets(DefaultSeed).
func DefaultCaseConfigs() []CaseConfig {
	return []CaseConfig{
		{
			Name:     "random_forest",
			Model:    factory.ModuleConfig{Type: forecasting.TypeRandomForest, Conf: map[string]any{"lags": 3, "n_estimators": 20, "random_state": 0}},
			MaxError: 0.2,
		},
		{
			Name:     "exponential_smoothing",
			Model:    factory.ModuleConfig{Type: forecasting.TypeExponentialSmoothing, Conf: map[string]any{"alpha": 0.2, "random_state": 0}},
			MaxError: 0.4,
		},
		{
			Name:     "arima",
			Model:    factory.ModuleConfig{Type: forecasting.TypeARIMA, Conf: map[string]any{"p": 1, "d": 0, "q": 1, "random_state": 0}},
			MaxError: 0.17,
		},
	}
}

// BuildCases turns configurations into cases. Each configuration is built
// once so that invalid parameters are reported before a run starts.
func BuildCases(cfgs []CaseConfig) ([]Case, error) {
	cases := make([]Case, 0, len(cfgs))
	seen := map[string]bool{}
	for i, cc := range cfgs {
		if cc.Name == "" {
			cc.Name = cc.Model.Type
		}
		if cc.Name == "" {
			return nil, fmt.Errorf("%w: case %d has no name or model type", ErrInvalidConfig, i)
		}
		if seen[cc.Name] {
			return nil, fmt.Errorf("%w: duplicate case %q", ErrInvalidConfig, cc.Name)
		}
		seen[cc.Name] = true
		if cc.MaxError <= 0 {
			return nil, fmt.Errorf("%w: case %q: max_error must be > 0", ErrInvalidConfig, cc.Name)
		}
		if _, err := forecasting.NewModel(cc.Model); err != nil {
			return nil, fmt.Errorf("case %q: %w", cc.Name, err)
		}
		model := cc.Model
		cases = append(cases, Case{
			Name:     cc.Name,
			MaxError: cc.MaxError,
			New:      func() (forecasting.Model, error) { return forecasting.NewModel(model) },
		})
	}
	return cases, nil
}
