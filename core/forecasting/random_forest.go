package forecasting

import (
	"fmt"
	"strconv"

	"github.com/kilianp07/forecast/core/lags"
	"github.com/kilianp07/forecast/core/learn/forest"
)

// RandomForestParams configures a RandomForest.
type RandomForestParams struct {
	// Lags of the target used as features. A count n uses lags -n to -1;
	// a list must only contain negative lags.
	Lags lags.Spec
	// LagsPastCovariates follows the same rules as Lags.
	LagsPastCovariates lags.Spec
	// LagsFutureCovariates takes a (past, future) tuple or any list of lags.
	LagsFutureCovariates lags.Spec
	// NEstimators is the number of trees; 0 means forest.DefaultEstimators.
	NEstimators int
	// MaxDepth bounds tree depth; 0 grows trees until leaves are pure or
	// smaller than min_samples_split.
	MaxDepth int
	// Options are forwarded to the forest (min_samples_split,
	// min_samples_leaf, max_features, bootstrap, random_state, n_jobs).
	// n_estimators and max_depth are always taken from the fields above.
	Options map[string]any
}

// RandomForest is a RegressionModel backed by a random forest. With more
// than one sample, each predicted step is drawn from a uniformly chosen tree.
type RandomForest struct {
	*RegressionModel
	params RandomForestParams
	cfg    forest.Config
}

// NewRandomForest validates the lags and estimator options and returns an
// unfitted model.
func NewRandomForest(p RandomForestParams) (*RandomForest, error) {
	set, err := lags.NewSet(p.Lags, p.LagsPastCovariates, p.LagsFutureCovariates)
	if err != nil {
		return nil, err
	}
	var cfg forest.Config
	if err := cfg.DecodeOptions(p.Options); err != nil {
		return nil, err
	}
	if p.NEstimators == 0 {
		p.NEstimators = forest.DefaultEstimators
	}
	cfg.NEstimators = p.NEstimators
	cfg.MaxDepth = p.MaxDepth
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := NewRegressionModel(set, func(int) (Regressor, error) {
		return forest.New(cfg)
	}, cfg.RandomState)
	if err != nil {
		return nil, err
	}
	return &RandomForest{RegressionModel: base, params: p, cfg: cfg}, nil
}

// Config returns the effective forest hyperparameters.
func (m *RandomForest) Config() forest.Config { return m.cfg }

// FeatureImportances returns the forest importances of each target component.
func (m *RandomForest) FeatureImportances() ([][]float64, error) {
	regs := m.Regressors()
	if regs == nil {
		return nil, ErrNotFitted
	}
	out := make([][]float64, len(regs))
	for i, r := range regs {
		imp, err := r.(*forest.Regressor).FeatureImportances()
		if err != nil {
			return nil, err
		}
		out[i] = imp
	}
	return out, nil
}

func (m *RandomForest) String() string {
	depth := "None"
	if m.params.MaxDepth > 0 {
		depth = strconv.Itoa(m.params.MaxDepth)
	}
	return fmt.Sprintf("RandomForest(lags=%s, lags_past_covariates=%s, lags_future_covariates=%s, n_estimators=%d, max_depth=%s)",
		m.params.Lags, m.params.LagsPastCovariates, m.params.LagsFutureCovariates, m.params.NEstimators, depth)
}
