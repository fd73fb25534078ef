// Package accuracy scores forecasts against observed series.
//
// Point metrics (MAE, MSE, RMSE, MAPE, SMAPE) reduce stochastic inputs to
// their median. Probabilistic metrics (RhoRisk, QuantileLoss) work on the
// sample paths. Series are intersected on time before scoring and
// multivariate results are reduced over components, by default with the
// mean.
package accuracy
