// Package evaluation validates probabilistic forecasting models.
//
// The Harness fits each Case on a noisy series and checks three
// properties of its sample-path forecasts against the noiseless truth:
//
//   - determinism: two models built with the same random state give the
//     same samples, and a second prediction from one model differs;
//   - accuracy: the median forecast is within the case tolerance and the
//     MAE grows as the forecast quantile moves away from the median;
//   - risk: the rho-risk at 0.5 is within the tolerance and grows as rho
//     moves away from its optimum.
//
// Runs produce a Report that a Store can persist.
package evaluation
