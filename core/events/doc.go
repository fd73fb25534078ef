// Package events defines the forecasting events emitted on the event bus.
//
// Available event types:
//   - ForecastEvent: a model produced a forecast, optionally scored
//     against held-out observations
package events
