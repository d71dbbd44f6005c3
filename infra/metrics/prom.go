package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/rota/core/metrics"
)

// PromSink records month and run outcomes in Prometheus metrics.
type PromSink struct {
	months    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	attempts  prometheus.Counter
	nodes     prometheus.Counter
	objective *prometheus.GaugeVec
	imbalance *prometheus.GaugeVec
	runs      *prometheus.CounterVec
}

// NewPromSink registers roster metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	months := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rota_months_total",
		Help: "Solved and infeasible months",
	}, []string{"status", "phase", "separation"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rota_month_solve_seconds",
		Help:    "Wall time spent on all trials of a month",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	}, []string{"status"})
	attempts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rota_solver_trials_total",
		Help: "Solver calls across phases and separation distances",
	})
	nodes := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rota_solver_nodes_total",
		Help: "Solver search nodes explored; GLPK reports none",
	})
	objective := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rota_month_objective",
		Help: "Objective value of the last solved month",
	}, []string{"tier"})
	imbalance := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "rota_fairness_imbalance_shifts",
		Help: "Free shifts owed to each worker after the last solved month",
	}, []string{"worker_id"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rota_runs_total",
		Help: "Generation runs by outcome",
	}, []string{"outcome"})

	var err error
	if months, err = register(reg, months); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}
	if attempts, err = register(reg, attempts); err != nil {
		return nil, err
	}
	if nodes, err = register(reg, nodes); err != nil {
		return nil, err
	}
	if objective, err = register(reg, objective); err != nil {
		return nil, err
	}
	if imbalance, err = register(reg, imbalance); err != nil {
		return nil, err
	}
	if runs, err = register(reg, runs); err != nil {
		return nil, err
	}
	return &PromSink{
		months:    months,
		duration:  duration,
		attempts:  attempts,
		nodes:     nodes,
		objective: objective,
		imbalance: imbalance,
		runs:      runs,
	}, nil
}

// register adds c to reg, reusing the collector already registered under the
// same name.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordMonth counts the month and observes its solve effort.
func (s *PromSink) RecordMonth(rec coremetrics.MonthRecord) error {
	sep := ""
	if rec.Status == coremetrics.StatusSolved {
		sep = strconv.Itoa(rec.Separation)
		s.objective.WithLabelValues("base").Set(rec.BaseObjective)
		s.objective.WithLabelValues("fairness").Set(rec.FairnessObjective)
	}
	s.months.WithLabelValues(rec.Status, rec.Phase, sep).Inc()
	s.duration.WithLabelValues(rec.Status).Observe(rec.Duration.Seconds())
	s.attempts.Add(float64(rec.Attempts))
	s.nodes.Add(float64(rec.Nodes))
	return nil
}

// RecordRun counts the run by outcome.
func (s *PromSink) RecordRun(rec coremetrics.RunRecord) error {
	outcome := "completed"
	if rec.Failed {
		outcome = "failed"
	}
	s.runs.WithLabelValues(outcome).Inc()
	return nil
}

// RecordFairness publishes each worker's running imbalance.
func (s *PromSink) RecordFairness(recs []coremetrics.FairnessRecord) error {
	for _, r := range recs {
		s.imbalance.WithLabelValues(r.WorkerID).Set(r.TargetFree - r.ActualFree)
	}
	return nil
}
