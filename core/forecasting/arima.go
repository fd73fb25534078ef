package forecasting

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/forecast/core/learn/linear"
	"github.com/kilianp07/forecast/core/timeseries"
)

// ARIMAParams configures an ARIMA(p, d, q) model with a mean term.
type ARIMAParams struct {
	P           int     `json:"p"`
	D           int     `json:"d"`
	Q           int     `json:"q"`
	RandomState *uint64 `json:"random_state"`
}

// DefaultARIMAParams returns ARIMA(12, 1, 0).
func DefaultARIMAParams() ARIMAParams { return ARIMAParams{P: 12, D: 1, Q: 0} }

// ARIMA fits an ARMA(p, q) process on the d-times differenced series by
// conditional sum of squares.
type ARIMA struct {
	params ARIMAParams

	mu     sync.Mutex
	rng    *rand.Rand
	train  *timeseries.TimeSeries
	fitted bool
	mean   float64
	phi    []float64
	theta  []float64
	sigma  float64
	// tails[k] holds the last value of the k-times differenced series.
	tails     []float64
	w         []float64
	residuals []float64
}

func NewARIMA(p ARIMAParams) (*ARIMA, error) {
	if p.P < 0 || p.D < 0 || p.Q < 0 {
		return nil, fmt.Errorf("%w: orders must be >= 0, got (%d, %d, %d)", ErrInvalidParams, p.P, p.D, p.Q)
	}
	return &ARIMA{params: p, rng: newRand(p.RandomState)}, nil
}

func (m *ARIMA) Probabilistic() bool { return true }
func (m *ARIMA) Multivariate() bool  { return false }

func (m *ARIMA) String() string {
	return fmt.Sprintf("ARIMA(p=%d, d=%d, q=%d)", m.params.P, m.params.D, m.params.Q)
}

// Coefficients returns the fitted mean, AR and MA coefficients.
func (m *ARIMA) Coefficients() (mean float64, phi, theta []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mean, append([]float64(nil), m.phi...), append([]float64(nil), m.theta...)
}

func diff(x []float64) []float64 {
	out := make([]float64, len(x)-1)
	for i := range out {
		out[i] = x[i+1] - x[i]
	}
	return out
}

// css returns the conditional sum of squares and fills e with residuals.
func css(w []float64, mean float64, phi, theta, e []float64) float64 {
	p := len(phi)
	sse := 0.0
	for t := range w {
		e[t] = 0
		if t < p {
			continue
		}
		pred := mean
		for i, c := range phi {
			pred += c * (w[t-1-i] - mean)
		}
		for j, c := range theta {
			if t-1-j >= 0 {
				pred += c * e[t-1-j]
			}
		}
		e[t] = w[t] - pred
		sse += e[t] * e[t]
	}
	return sse
}

// Fit differences the series and estimates the ARMA coefficients.
func (m *ARIMA) Fit(ctx context.Context, series *timeseries.TimeSeries, _ ...Option) error {
	if series == nil {
		return fmt.Errorf("%w: nil series", ErrNotEnoughData)
	}
	if !series.IsUnivariate() {
		return ErrUnivariateOnly
	}
	if series.IsStochastic() {
		return ErrStochasticInput
	}
	p, d, q := m.params.P, m.params.D, m.params.Q
	y := series.Component(0)
	need := d + 2*p + q + 2
	if len(y) < need {
		return fmt.Errorf("%w: %d observations, ARIMA(%d,%d,%d) needs %d", ErrNotEnoughData, len(y), p, d, q, need)
	}
	tails := make([]float64, d)
	w := y
	for k := 0; k < d; k++ {
		tails[k] = w[len(w)-1]
		w = diff(w)
	}

	mean := stat.Mean(w, nil)
	phi0 := m.initialAR(w, mean)
	x0 := make([]float64, 1+p+q)
	x0[0] = mean
	copy(x0[1:], phi0)

	e := make([]float64, len(w))
	objective := func(x []float64) float64 {
		phi, theta := x[1:1+p], x[1+p:]
		for _, c := range phi {
			if math.Abs(c) >= 1 {
				return math.Inf(1)
			}
		}
		for _, c := range theta {
			if math.Abs(c) >= 1 {
				return math.Inf(1)
			}
		}
		return css(w, x[0], phi, theta, e)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	best := x0
	res, err := optimize.Minimize(optimize.Problem{Func: objective}, x0,
		&optimize.Settings{FuncEvaluations: 2000 * len(x0)}, &optimize.NelderMead{})
	if res == nil {
		return fmt.Errorf("arima: optimise: %w", err)
	}
	if res.F <= objective(x0) {
		best = res.X
	}

	phi := append([]float64(nil), best[1:1+p]...)
	theta := append([]float64(nil), best[1+p:]...)
	sse := css(w, best[0], phi, theta, e)
	dof := len(w) - p - len(best)
	if dof < 1 {
		dof = 1
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.mean = best[0]
	m.phi = phi
	m.theta = theta
	m.sigma = math.Sqrt(sse / float64(dof))
	m.tails = tails
	m.w = w
	m.residuals = append([]float64(nil), e...)
	m.train = series
	m.fitted = true
	return nil
}

// initialAR estimates AR coefficients by least squares on centred lags,
// clipped inside the unit interval. Degenerate inputs start from zero.
func (m *ARIMA) initialAR(w []float64, mean float64) []float64 {
	p := m.params.P
	out := make([]float64, p)
	if p == 0 || stat.Variance(w, nil) < 1e-12 {
		return out
	}
	rows := len(w) - p
	x := mat.NewDense(rows, p, nil)
	y := make([]float64, rows)
	for t := p; t < len(w); t++ {
		for i := 0; i < p; i++ {
			x.Set(t-p, i, w[t-1-i]-mean)
		}
		y[t-p] = w[t] - mean
	}
	off := false
	reg := linear.New(linear.Config{FitIntercept: &off})
	if err := reg.Fit(context.Background(), x, y); err != nil {
		return out
	}
	coef, _ := reg.Coefficients()
	for i, c := range coef {
		if math.IsNaN(c) {
			return make([]float64, p)
		}
		out[i] = math.Max(-0.95, math.Min(0.95, c))
	}
	return out
}

// Predict forecasts n steps. With one sample future innovations are zero;
// otherwise they are drawn from N(0, sigma²).
func (m *ARIMA) Predict(ctx context.Context, n int, opts ...Option) (*timeseries.TimeSeries, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o := ApplyOptions(opts...)
	if err := checkPredict(m.fitted, true, n, o); err != nil {
		return nil, err
	}
	p, q := len(m.phi), len(m.theta)
	paths := make([][][]float64, o.NumSamples)
	for s := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w := append(make([]float64, 0, len(m.w)+n), m.w...)
		e := append(make([]float64, 0, len(m.residuals)+n), m.residuals...)
		for k := 0; k < n; k++ {
			t := len(w)
			pred := m.mean
			for i := 0; i < p; i++ {
				pred += m.phi[i] * (w[t-1-i] - m.mean)
			}
			for j := 0; j < q; j++ {
				pred += m.theta[j] * e[t-1-j]
			}
			shock := 0.0
			if o.NumSamples > 1 {
				shock = m.sigma * m.rng.NormFloat64()
			}
			w = append(w, pred+shock)
			e = append(e, shock)
		}
		path := m.integrate(w[len(m.w):])
		paths[s] = make([][]float64, n)
		for k, v := range path {
			paths[s][k] = []float64{v}
		}
	}
	return forecastSeries(m.train, paths)
}

// integrate undoes the differencing of forecast values.
func (m *ARIMA) integrate(f []float64) []float64 {
	out := append([]float64(nil), f...)
	for k := len(m.tails) - 1; k >= 0; k-- {
		floats.CumSum(out, out)
		floats.AddConst(m.tails[k], out)
	}
	return out
}
