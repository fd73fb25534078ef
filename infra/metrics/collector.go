package metrics

import (
	"context"

	"github.com/kilianp07/forecast/core/events"
	coremetrics "github.com/kilianp07/forecast/core/metrics"
	"github.com/kilianp07/forecast/infra/logger"
	"github.com/kilianp07/forecast/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records the scores of
// every forecast. It stops when the context is canceled or the bus closes.
// The returned channel is closed once the collector has stopped. Sink
// errors are logged and do not stop the collector.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus[events.ForecastEvent], sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				for _, s := range ev.Scores {
					err := sink.RecordScore(coremetrics.ScoreEvent{
						RunID:    ev.RunID,
						Model:    ev.Model,
						Dataset:  ev.Dataset,
						Metric:   s.Metric,
						Quantile: s.Quantile,
						Value:    s.Value,
						Time:     ev.Time,
					})
					if err != nil {
						log.Warnf("record score %s of %s: %v", s.Metric, ev.RunID, err)
					}
				}
			}
		}
	}()
	return done
}
