package evaluation

import (
	"github.com/kilianp07/forecast/core/forecasting"
	"github.com/kilianp07/forecast/core/timeseries"
)

// Case is a model configuration under test. MaxError bounds both the MAE of
// the median forecast and the rho-risk at 0.5.
type Case struct {
	Name     string
	New      func() (forecasting.Model, error)
	MaxError float64
}

// Dataset pairs a noiseless truth with the noisy series models are fitted on.
type Dataset struct {
	Name  string
	Truth *timeseries.TimeSeries
	Noisy *timeseries.TimeSeries
}

// Multivariate reports whether the dataset has more than one component.
func (d Dataset) Multivariate() bool { return d.Truth.Width() > 1 }

// Constant dataset parameters.
const (
	ConstantLength = 200
	ConstantValue  = 0.5
	ConstantNoise  = 0.1
)

// ConstantDatasets returns a constant series with Gaussian noise drawn from
// seed, and its two-component stack.
func ConstantDatasets(seed uint64) ([]Dataset, error) {
	truth, err := timeseries.Constant(ConstantLength, ConstantValue)
	if err != nil {
		return nil, err
	}
	noise, err := timeseries.Gaussian(ConstantLength, 0, ConstantNoise, timeseries.NewRand(seed))
	if err != nil {
		return nil, err
	}
	noisy, err := truth.Add(noise)
	if err != nil {
		return nil, err
	}
	mvTruth, err := truth.Stack(truth)
	if err != nil {
		return nil, err
	}
	mvNoisy, err := noisy.Stack(noisy)
	if err != nil {
		return nil, err
	}
	return []Dataset{
		{Name: "constant", Truth: truth, Noisy: noisy},
		{Name: "constant_multivariate", Truth: mvTruth, Noisy: mvNoisy},
	}, nil
}
