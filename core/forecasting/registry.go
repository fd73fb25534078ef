package forecasting

import (
	"fmt"
	"maps"

	"github.com/kilianp07/forecast/core/factory"
	"github.com/kilianp07/forecast/core/lags"
)

// Registered model types.
const (
	TypeRandomForest         = "random_forest"
	TypeLinearRegression     = "linear_regression"
	TypeExponentialSmoothing = "exponential_smoothing"
	TypeARIMA                = "arima"
)

var registry = factory.NewRegistry[Model]()

func init() {
	registry.MustRegister(TypeRandomForest, func(conf map[string]any) (Model, error) {
		p, err := decodeRandomForest(conf)
		if err != nil {
			return nil, err
		}
		return NewRandomForest(p)
	})
	registry.MustRegister(TypeLinearRegression, func(conf map[string]any) (Model, error) {
		var c struct {
			Lags                 any   `json:"lags"`
			LagsPastCovariates   any   `json:"lags_past_covariates"`
			LagsFutureCovariates any   `json:"lags_future_covariates"`
			FitIntercept         *bool `json:"fit_intercept"`
		}
		if err := factory.DecodeStrict(conf, &c); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		target, past, future, err := parseSpecs(c.Lags, c.LagsPastCovariates, c.LagsFutureCovariates)
		if err != nil {
			return nil, err
		}
		return NewLinearRegressionModel(LinearRegressionParams{
			Lags:                 target,
			LagsPastCovariates:   past,
			LagsFutureCovariates: future,
			FitIntercept:         c.FitIntercept,
		})
	})
	registry.MustRegister(TypeExponentialSmoothing, func(conf map[string]any) (Model, error) {
		var p ExponentialSmoothingParams
		if err := factory.DecodeStrict(conf, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		return NewExponentialSmoothing(p)
	})
	registry.MustRegister(TypeARIMA, func(conf map[string]any) (Model, error) {
		p := DefaultARIMAParams()
		if err := factory.DecodeStrict(conf, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		return NewARIMA(p)
	})
}

// NewModel builds a model from its module configuration.
func NewModel(cfg factory.ModuleConfig) (Model, error) {
	return registry.Create(cfg)
}

// Register adds a model type to the registry used by NewModel.
func Register(name string, f factory.Factory[Model]) error {
	return registry.Register(name, f)
}

// Types lists the registered model types.
func Types() []string { return registry.Types() }

func parseSpecs(t, p, f any) (target, past, future lags.Spec, err error) {
	if target, err = lags.ParseSpec(t); err != nil {
		return
	}
	if past, err = lags.ParseSpec(p); err != nil {
		return
	}
	future, err = lags.ParseSpec(f)
	return
}

// decodeRandomForest reads the named parameters and forwards every other
// key, merged with an explicit "options" map, to the estimator.
func decodeRandomForest(conf map[string]any) (RandomForestParams, error) {
	var c struct {
		Lags                 any            `json:"lags"`
		LagsPastCovariates   any            `json:"lags_past_covariates"`
		LagsFutureCovariates any            `json:"lags_future_covariates"`
		NEstimators          int            `json:"n_estimators"`
		MaxDepth             *int           `json:"max_depth"`
		Options              map[string]any `json:"options"`
	}
	known := map[string]any{}
	extra := map[string]any{}
	for k, v := range conf {
		switch k {
		case "lags", "lags_past_covariates", "lags_future_covariates", "n_estimators", "max_depth", "options":
			known[k] = v
		default:
			extra[k] = v
		}
	}
	if err := factory.DecodeStrict(known, &c); err != nil {
		return RandomForestParams{}, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	target, past, future, err := parseSpecs(c.Lags, c.LagsPastCovariates, c.LagsFutureCovariates)
	if err != nil {
		return RandomForestParams{}, err
	}
	opts := maps.Clone(c.Options)
	if opts == nil {
		opts = map[string]any{}
	}
	maps.Copy(opts, extra)
	p := RandomForestParams{
		Lags:                 target,
		LagsPastCovariates:   past,
		LagsFutureCovariates: future,
		NEstimators:          c.NEstimators,
		Options:              opts,
	}
	if c.MaxDepth != nil {
		if *c.MaxDepth < 0 {
			return RandomForestParams{}, fmt.Errorf("%w: max_depth must be >= 0, got %d", ErrInvalidParams, *c.MaxDepth)
		}
		p.MaxDepth = *c.MaxDepth
	}
	return p, nil
}
