package timeseries

import (
	"math"
	"math/rand/v2"
)

// Constant returns a univariate series of length steps equal to value.
func Constant(length int, value float64) (*TimeSeries, error) {
	vals := make([]float64, length)
	for i := range vals {
		vals[i] = value
	}
	return FromValues(vals)
}

// Gaussian returns white noise drawn from N(mean, std²). The generator rng
// makes the output reproducible.
func Gaussian(length int, mean, std float64, rng *rand.Rand) (*TimeSeries, error) {
	vals := make([]float64, length)
	for i := range vals {
		vals[i] = mean + std*rng.NormFloat64()
	}
	return FromValues(vals)
}

// Linear returns length evenly spaced values from start to end inclusive.
func Linear(length int, start, end float64) (*TimeSeries, error) {
	vals := make([]float64, length)
	step := 0.0
	if length > 1 {
		step = (end - start) / float64(length-1)
	}
	for i := range vals {
		vals[i] = start + float64(i)*step
	}
	return FromValues(vals)
}

// Sine returns amplitude*sin(2π·freq·i + phase) + offset, where freq is in
// cycles per time step.
func Sine(length int, freq, amplitude, phase, offset float64) (*TimeSeries, error) {
	vals := make([]float64, length)
	for i := range vals {
		vals[i] = amplitude*math.Sin(2*math.Pi*freq*float64(i)+phase) + offset
	}
	return FromValues(vals)
}

// RandomWalk returns the cumulative sum of N(mean, std²) increments.
func RandomWalk(length int, mean, std float64, rng *rand.Rand) (*TimeSeries, error) {
	vals := make([]float64, length)
	acc := 0.0
	for i := range vals {
		acc += mean + std*rng.NormFloat64()
		vals[i] = acc
	}
	return FromValues(vals)
}

// NewRand returns a PCG-backed generator seeded with seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
