package mqtt

import (
	"context"

	"github.com/kilianp07/forecast/core/events"
	coremqtt "github.com/kilianp07/forecast/core/mqtt"
	"github.com/kilianp07/forecast/infra/logger"
	"github.com/kilianp07/forecast/internal/eventbus"
	"github.com/kilianp07/forecast/pkg/export"
)

// Forward publishes every forecast event received on bus, summarised at the
// given quantiles. It stops when ctx is canceled or the bus closes; the
// returned channel is closed once it has stopped.
func Forward(ctx context.Context, bus eventbus.EventBus[events.ForecastEvent], pub Publisher, quantiles []float64) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
		close(done)
		return done
	}
	log := logger.New("mqtt_forwarder")
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
				rows, err := export.Summarize(ev.Forecast, quantiles)
				if err != nil {
					log.Errorf("summarise forecast of %s: %v", ev.Model, err)
					continue
				}
				msg := coremqtt.ForecastMessage{
					RunID:     ev.RunID,
					Model:     ev.Model,
					Dataset:   ev.Dataset,
					Rows:      rows,
					Scores:    ev.Scores,
					Timestamp: ev.Time.UnixMilli(),
				}
				if _, err := pub.PublishForecast(ctx, msg); err != nil {
					log.Errorf("publish forecast of %s: %v", ev.Model, err)
				}
			}
		}
	}()
	return done
}
