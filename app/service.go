// Package app wires the roster engine to its metrics sinks, the run
// archive and the MQTT publisher.
package app

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/kilianp07/rota/config"
	coremetrics "github.com/kilianp07/rota/core/metrics"
	"github.com/kilianp07/rota/core/monitoring"
	"github.com/kilianp07/rota/core/model"
	"github.com/kilianp07/rota/core/roster"
	"github.com/kilianp07/rota/infra/logger"
	"github.com/kilianp07/rota/infra/metrics"
	"github.com/kilianp07/rota/infra/mqtt"
	"github.com/kilianp07/rota/infra/store"
	"github.com/kilianp07/rota/internal/eventbus"
	"github.com/kilianp07/rota/pkg/input"
)

// eventBuffer leaves room for every event of a multi-year run.
const eventBuffer = 256

// Service runs roster generations and fans their progress out.
type Service struct {
	Engine *roster.Engine
	// Store is nil when persistence is disabled.
	Store *store.Store

	bus    *eventbus.Bus[roster.Event]
	mqtt   *mqtt.PahoClient
	log    logger.Logger
	cancel context.CancelFunc
	done   []<-chan struct{}
}

// Options overrides parts of the wiring, mostly for tests.
type Options struct {
	// Sink replaces the sinks listed in the metrics configuration.
	Sink coremetrics.MetricsSink
	// Publisher replaces the MQTT client built from the configuration.
	Publisher mqtt.Publisher
}

// New creates a Service from the configuration. Background consumers stop
// when ctx is canceled or Close is called.
func New(ctx context.Context, cfg *config.Config, opts Options) (*Service, error) {
	log := logger.New("service")

	sink := opts.Sink
	if sink == nil {
		var err error
		if sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
	}

	bus := eventbus.NewBuffered[roster.Event](eventBuffer)
	engine, err := roster.NewEngine(cfg.Engine, nil, sink, bus, logger.New("engine"))
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	bg, cancel := context.WithCancel(ctx)
	s := &Service{Engine: engine, bus: bus, log: log, cancel: cancel}

	if cfg.Store.Enabled() {
		if s.Store, err = store.Open(cfg.Store.Path, logger.New("store")); err != nil {
			s.Close()
			return nil, fmt.Errorf("store: %w", err)
		}
	}

	pub := opts.Publisher
	if pub == nil && cfg.MQTT.Enabled() {
		if s.mqtt, err = mqtt.NewPahoClient(cfg.MQTT); err != nil {
			s.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		pub = s.mqtt
	}
	if pub != nil {
		sp := mqtt.NewSchedulePublisher(pub, logger.New("mqtt"))
		s.done = append(s.done, sp.Start(bg, bus))
	}

	if addr := cfg.Metrics.PrometheusAddr; addr != "" {
		collector, err := metrics.NewEventCollector(nil)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("event collector: %w", err)
		}
		s.done = append(s.done, collector.Start(bg, bus))
		go func() {
			defer monitoring.Recover()
			if err := metrics.StartPromServer(bg, addr); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}
	return s, nil
}

// Generate schedules from..to for r. With a store, pinned shifts are merged
// into the roster, the history defaults to the shifts stored before from,
// and the run is archived even when the solver stopped it early.
func (s *Service) Generate(ctx context.Context, r model.Roster, from, to model.YearMonth) (*roster.Run, error) {
	if s.Store != nil {
		pinned, err := s.Store.Pinned(ctx)
		if err != nil {
			return nil, fmt.Errorf("load pins: %w", err)
		}
		var skipped []model.MandatoryShift
		r, skipped = input.WithPinned(r, pinned)
		for _, p := range skipped {
			s.log.Warnf("pin for unknown worker %s on %s skipped", p.WorkerID, p.Date)
		}
		if len(r.History) == 0 {
			if r.History, err = s.Store.History(ctx, from, s.Engine.Config().MaxSeparation()); err != nil {
				return nil, fmt.Errorf("load history: %w", err)
			}
		}
	}

	run, err := s.Engine.Generate(ctx, r, from, to)
	if err != nil {
		monitoring.Report(err, failureTags(run, err))
	}
	if run != nil && s.Store != nil {
		if serr := s.Store.SaveRun(ctx, run); serr != nil {
			return run, errors.Join(err, fmt.Errorf("save run: %w", serr))
		}
		s.log.Infof("run %s saved", run.ID)
	}
	return run, err
}

// failureTags describes where a run stopped.
func failureTags(run *roster.Run, err error) map[string]string {
	tags := map[string]string{}
	if run != nil {
		tags["run_id"] = run.ID
	}
	var se *roster.SolverError
	if errors.As(err, &se) {
		tags["month"] = se.Month.String()
		tags["phase"] = se.Phase.String()
		tags["separation"] = strconv.Itoa(se.Separation)
		tags["timeout"] = strconv.FormatBool(errors.Is(err, roster.ErrSolverTimeout))
	}
	return tags
}

// Close stops the background consumers once they have drained the bus and
// releases the store and the MQTT connection.
func (s *Service) Close() error {
	s.bus.Close()
	for _, d := range s.done {
		<-d
	}
	s.cancel()
	if s.mqtt != nil {
		s.mqtt.Disconnect()
	}
	if s.Store != nil {
		return s.Store.Close()
	}
	return nil
}
