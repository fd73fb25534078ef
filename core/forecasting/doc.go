// Package forecasting defines the fit/predict contract shared by all
// forecasting models and its implementations:
//
//   - RegressionModel: lag-based forecasting over any Regressor, predicting
//     one step at a time and feeding predictions back as history.
//   - RandomForest and LinearRegressionModel: RegressionModel configured
//     with a random forest or an ordinary least squares regressor.
//   - ExponentialSmoothing and ARIMA: univariate statistical models.
//
// Probabilistic models return stochastic series when asked for more than
// one sample. Every model accepts a random state so that two models built
// with the same seed and fitted on the same data produce the same samples.
//
// Models are built from configuration through the registry:
//
//	m, err := forecasting.NewModel(factory.ModuleConfig{
//	    Type: "random_forest",
//	    Conf: map[string]any{"lags": 12, "n_estimators": 200},
//	})
package forecasting
