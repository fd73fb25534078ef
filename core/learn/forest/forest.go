// Package forest implements a random forest regressor: an ensemble of CART
// trees fitted on bootstrap samples with random feature subsets at each
// split.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/mitchellh/mapstructure"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFitted is returned when predicting before Fit.
	ErrNotFitted = errors.New("forest: regressor is not fitted")
	// ErrInvalidConfig is returned for out-of-range hyperparameters.
	ErrInvalidConfig = errors.New("forest: invalid configuration")
	// ErrDimension is returned when inputs have inconsistent sizes.
	ErrDimension = errors.New("forest: dimension mismatch")
)

// DefaultEstimators is the ensemble size used when none is configured.
const DefaultEstimators = 100

// Config holds the forest hyperparameters.
type Config struct {
	NEstimators     int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	MaxFeatures     float64 `json:"max_features"`
	Bootstrap       *bool   `json:"bootstrap"`
	RandomState     *uint64 `json:"random_state"`
	Workers         int     `json:"n_jobs"`
}

// DefaultConfig returns the default hyperparameters.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	if c.NEstimators == 0 {
		c.NEstimators = DefaultEstimators
	}
	if c.MinSamplesSplit == 0 {
		c.MinSamplesSplit = 2
	}
	if c.MinSamplesLeaf == 0 {
		c.MinSamplesLeaf = 1
	}
	if c.MaxFeatures == 0 {
		c.MaxFeatures = 1
	}
	if c.Bootstrap == nil {
		b := true
		c.Bootstrap = &b
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
}

// Validate checks hyperparameter ranges.
func (c Config) Validate() error {
	switch {
	case c.NEstimators < 1:
		return fmt.Errorf("%w: n_estimators must be >= 1, got %d", ErrInvalidConfig, c.NEstimators)
	case c.MaxDepth < 0:
		return fmt.Errorf("%w: max_depth must be >= 0, got %d", ErrInvalidConfig, c.MaxDepth)
	case c.MinSamplesSplit < 2:
		return fmt.Errorf("%w: min_samples_split must be >= 2, got %d", ErrInvalidConfig, c.MinSamplesSplit)
	case c.MinSamplesLeaf < 1:
		return fmt.Errorf("%w: min_samples_leaf must be >= 1, got %d", ErrInvalidConfig, c.MinSamplesLeaf)
	case c.MaxFeatures <= 0 || c.MaxFeatures > 1:
		return fmt.Errorf("%w: max_features must be in (0, 1], got %v", ErrInvalidConfig, c.MaxFeatures)
	}
	return nil
}

func (c Config) featuresPerSplit(n int) int {
	k := int(math.Ceil(c.MaxFeatures * float64(n)))
	return min(max(k, 1), n)
}

// DecodeOptions applies loosely typed estimator options onto c. Unknown keys
// are rejected.
func (c *Config) DecodeOptions(opts map[string]any) error {
	if len(opts) == 0 {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		Result:           c,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(opts); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Regressor is a fitted or unfitted random forest.
type Regressor struct {
	cfg       Config
	trees     []*Tree
	nFeatures int
}

// New returns an unfitted forest.
func New(cfg Config) (*Regressor, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Regressor{cfg: cfg}, nil
}

// Config returns the effective hyperparameters.
func (r *Regressor) Config() Config { return r.cfg }

// Fit trains the forest on the rows of x and targets y.
func (r *Regressor) Fit(ctx context.Context, x *mat.Dense, y []float64) error {
	rows, cols := x.Dims()
	if rows != len(y) {
		return fmt.Errorf("%w: %d rows and %d targets", ErrDimension, rows, len(y))
	}
	if rows == 0 {
		return fmt.Errorf("%w: no training rows", ErrDimension)
	}
	seed := rand.Uint64()
	if r.cfg.RandomState != nil {
		seed = *r.cfg.RandomState
	}
	// Per-tree generators are derived before any goroutine starts so the
	// ensemble only depends on the seed.
	seeder := rand.New(rand.NewPCG(seed, seed>>1|1))
	rngs := make([]*rand.Rand, r.cfg.NEstimators)
	for i := range rngs {
		rngs[i] = rand.New(rand.NewPCG(seeder.Uint64(), seeder.Uint64()))
	}

	trees := make([]*Tree, r.cfg.NEstimators)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rngs[i]
			idx := make([]int, rows)
			for k := range idx {
				if *r.cfg.Bootstrap {
					idx[k] = rng.IntN(rows)
				} else {
					idx[k] = k
				}
			}
			trees[i] = fitTree(x, y, idx, r.cfg, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	r.trees = trees
	r.nFeatures = cols
	return nil
}

func (r *Regressor) check(x []float64) error {
	if r.trees == nil {
		return ErrNotFitted
	}
	if len(x) != r.nFeatures {
		return fmt.Errorf("%w: got %d features, want %d", ErrDimension, len(x), r.nFeatures)
	}
	return nil
}

// Predict returns the mean prediction of all trees.
func (r *Regressor) Predict(x []float64) (float64, error) {
	if err := r.check(x); err != nil {
		return 0, err
	}
	sum := 0.0
	for _, t := range r.trees {
		sum += t.Predict(x)
	}
	return sum / float64(len(r.trees)), nil
}

// PredictSample returns the prediction of one tree drawn uniformly with rng.
func (r *Regressor) PredictSample(x []float64, rng *rand.Rand) (float64, error) {
	if err := r.check(x); err != nil {
		return 0, err
	}
	return r.trees[rng.IntN(len(r.trees))].Predict(x), nil
}

// Trees returns the fitted trees.
func (r *Regressor) Trees() []*Tree { return r.trees }

// FeatureImportances returns the impurity decrease per feature averaged over
// trees, normalised to sum to one. A forest made of single leaves yields zeros.
func (r *Regressor) FeatureImportances() ([]float64, error) {
	if r.trees == nil {
		return nil, ErrNotFitted
	}
	out := make([]float64, r.nFeatures)
	for _, t := range r.trees {
		total := floats.Sum(t.importance)
		if total == 0 {
			continue
		}
		floats.AddScaled(out, 1/total, t.importance)
	}
	if s := floats.Sum(out); s > 0 {
		floats.Scale(1/s, out)
	}
	return out, nil
}
