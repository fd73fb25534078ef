// Package linear implements ordinary least squares regression.
package linear

import (
	"context"
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrNotFitted = errors.New("linear: regressor is not fitted")
	ErrDimension = errors.New("linear: dimension mismatch")
)

// Config controls the regression.
type Config struct {
	FitIntercept *bool `json:"fit_intercept"`
}

// Regressor solves min ||Xb + c - y||² with a QR factorisation.
type Regressor struct {
	intercept bool
	coef      []float64
	bias      float64
	fitted    bool
}

// New returns an unfitted regressor. The intercept is fitted by default.
func New(cfg Config) *Regressor {
	intercept := true
	if cfg.FitIntercept != nil {
		intercept = *cfg.FitIntercept
	}
	return &Regressor{intercept: intercept}
}

// Fit estimates the coefficients.
func (r *Regressor) Fit(_ context.Context, x *mat.Dense, y []float64) error {
	rows, cols := x.Dims()
	if rows != len(y) {
		return fmt.Errorf("%w: %d rows and %d targets", ErrDimension, rows, len(y))
	}
	a := x
	if r.intercept {
		a = mat.NewDense(rows, cols+1, nil)
		a.Copy(x)
		for i := 0; i < rows; i++ {
			a.Set(i, cols, 1)
		}
	}
	_, ac := a.Dims()
	if rows < ac {
		return fmt.Errorf("%w: %d rows cannot determine %d coefficients", ErrDimension, rows, ac)
	}
	var beta mat.VecDense
	if err := beta.SolveVec(a, mat.NewVecDense(rows, append([]float64(nil), y...))); err != nil {
		return fmt.Errorf("linear: solve: %w", err)
	}
	r.coef = make([]float64, cols)
	for i := range r.coef {
		r.coef[i] = beta.AtVec(i)
	}
	r.bias = 0
	if r.intercept {
		r.bias = beta.AtVec(cols)
	}
	r.fitted = true
	return nil
}

// Predict returns the linear prediction for x.
func (r *Regressor) Predict(x []float64) (float64, error) {
	if !r.fitted {
		return 0, ErrNotFitted
	}
	if len(x) != len(r.coef) {
		return 0, fmt.Errorf("%w: got %d features, want %d", ErrDimension, len(x), len(r.coef))
	}
	return floats.Dot(r.coef, x) + r.bias, nil
}

// Coefficients returns the fitted weights and intercept.
func (r *Regressor) Coefficients() ([]float64, float64) {
	return append([]float64(nil), r.coef...), r.bias
}
