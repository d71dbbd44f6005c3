package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/rota/core/roster"
	"github.com/kilianp07/rota/internal/eventbus"
)

// EventCollector counts run progress events by kind and tracks the month
// being solved.
type EventCollector struct {
	events  *prometheus.CounterVec
	current prometheus.Gauge
}

// NewEventCollector registers the event metrics on reg. A nil registerer
// defaults to the global Prometheus registerer.
func NewEventCollector(reg prometheus.Registerer) (*EventCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rota_events_total",
		Help: "Run progress events by kind",
	}, []string{"kind"})
	current := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "rota_current_month",
		Help: "Month being solved as YYYYMM, zero when idle",
	})
	var err error
	if events, err = register(reg, events); err != nil {
		return nil, err
	}
	if current, err = register(reg, current); err != nil {
		return nil, err
	}
	return &EventCollector{events: events, current: current}, nil
}

// Observe records a single event.
func (c *EventCollector) Observe(ev roster.Event) {
	c.events.WithLabelValues(ev.Kind.String()).Inc()
	switch ev.Kind {
	case roster.EventMonthStarted:
		c.current.Set(float64(ev.Month.Year*100 + int(ev.Month.Month)))
	case roster.EventRunFinished:
		c.current.Set(0)
	}
}

// Start subscribes to the event bus and observes events until the context is
// canceled or the bus is closed. The returned channel is closed once the
// collector has stopped.
func (c *EventCollector) Start(ctx context.Context, bus *eventbus.Bus[roster.Event]) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil {
		close(done)
		return done
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
				c.Observe(ev)
			}
		}
	}()
	return done
}
