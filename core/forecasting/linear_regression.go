package forecasting

import (
	"fmt"

	"github.com/kilianp07/forecast/core/lags"
	"github.com/kilianp07/forecast/core/learn/linear"
)

// LinearRegressionParams configures a LinearRegressionModel.
type LinearRegressionParams struct {
	Lags                 lags.Spec
	LagsPastCovariates   lags.Spec
	LagsFutureCovariates lags.Spec
	FitIntercept         *bool
}

// LinearRegressionModel is a RegressionModel backed by least squares.
type LinearRegressionModel struct {
	*RegressionModel
	params LinearRegressionParams
}

func NewLinearRegressionModel(p LinearRegressionParams) (*LinearRegressionModel, error) {
	set, err := lags.NewSet(p.Lags, p.LagsPastCovariates, p.LagsFutureCovariates)
	if err != nil {
		return nil, err
	}
	base, err := NewRegressionModel(set, func(int) (Regressor, error) {
		return linear.New(linear.Config{FitIntercept: p.FitIntercept}), nil
	}, nil)
	if err != nil {
		return nil, err
	}
	return &LinearRegressionModel{RegressionModel: base, params: p}, nil
}

func (m *LinearRegressionModel) String() string {
	return fmt.Sprintf("LinearRegressionModel(lags=%s, lags_past_covariates=%s, lags_future_covariates=%s)",
		m.params.Lags, m.params.LagsPastCovariates, m.params.LagsFutureCovariates)
}
