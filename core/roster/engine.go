package roster

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/rota/core/logger"
	"github.com/kilianp07/rota/core/metrics"
	"github.com/kilianp07/rota/core/milp"
	"github.com/kilianp07/rota/core/model"
	"github.com/kilianp07/rota/internal/eventbus"
)

// Engine solves months of a roster. It holds no state between calls; the
// month-to-month state is passed in and returned explicitly.
type Engine struct {
	cfg     Config
	solver  milp.Solver
	metrics metrics.MetricsSink
	bus     eventbus.Publisher[Event]
	logger  logger.Logger
	now     func() time.Time
}

// NewEngine validates cfg and returns an engine. A nil solver selects the
// solver named by cfg.Solver; nil sink, bus and logger disable the
// corresponding output.
func NewEngine(cfg Config, solver milp.Solver, sink metrics.MetricsSink, bus eventbus.Publisher[Event], log logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if solver == nil {
		solver = newSolver(cfg)
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Engine{
		cfg:     cfg,
		solver:  solver,
		metrics: sink,
		bus:     bus,
		logger:  logger.OrNop(log),
		now:     time.Now,
	}, nil
}

func newSolver(cfg Config) milp.Solver {
	if cfg.Solver == SolverBranchAndBound {
		return milp.NewBranchAndBound(cfg.MaxNodes)
	}
	return milp.NewGLPK()
}

// Config returns the engine configuration.
func (e *Engine) Config() Config { return e.cfg }

// MonthInput holds everything a month solve reads besides the state.
type MonthInput struct {
	Current MonthConstraints
	// Next is nil for the last month of a run, which then has no overlap
	// window.
	Next *MonthConstraints
	// History holds shifts accepted before Current, used to keep the
	// separation distance across the month boundary.
	History []model.Assignment
}

// SolveMonth tries every separation candidate with hard limits, then every
// candidate with soft limits, and accepts the first optimal model. It
// returns the month result and the state for the next month. An unresolved
// month is not an error: its result carries diagnostics, the returned carry
// is empty and the fairness ledger is unchanged. A solver failure is
// returned as *SolverError together with the unchanged state.
func (e *Engine) SolveMonth(ctx context.Context, st State, in MonthInput) (MonthResult, State, error) {
	res := MonthResult{Month: in.Current.Month, Status: MonthInfeasible}
	var widest *Horizon
	last := Attempt{}
	for _, phase := range []Phase{PhaseHard, PhaseSoft} {
		for _, m := range e.cfg.SeparationCandidates {
			h := BuildHorizon(in.Current, in.Next, m, st.Carry, in.History)
			if widest == nil {
				widest = &h
			}
			mm := BuildModel(h, phase, st.Fairness, e.cfg)
			sol, att, err := e.solve(ctx, mm.Model)
			att.Phase, att.Separation = phase, m
			res.Attempts = append(res.Attempts, att)
			last = att
			if err != nil {
				return res, st, &SolverError{Month: res.Month, Phase: phase, Separation: m, Err: err}
			}
			e.logger.Debugw("trial", map[string]any{
				"month":      res.Month.String(),
				"phase":      phase.String(),
				"separation": m,
				"status":     att.Status,
				"nodes":      att.Nodes,
				"duration":   att.Duration.String(),
			})
			switch sol.Status {
			case milp.StatusOptimal:
			case milp.StatusUnbounded:
				return res, st, &SolverError{Month: res.Month, Phase: phase, Separation: m, Err: fmt.Errorf("model %s is unbounded", mm.Model.Name)}
			default:
				continue
			}
			if !e.cfg.WeightedSum {
				sol, err = e.refine(ctx, &res, mm, sol)
				if err != nil {
					return res, st, &SolverError{Month: res.Month, Phase: phase, Separation: m, Err: err}
				}
			}
			samples := extract(&res, mm, sol)
			next := State{Carry: res.Carry, Fairness: st.Fairness.Update(samples)}
			e.logger.Infof("%s solved in %s phase with separation %d (base %.2f, fairness %.2f)",
				res.Month, phase, m, res.BaseObjective, res.FairnessObjective)
			return res, next, nil
		}
	}

	res.Diagnostics = &Diagnostics{LastPhase: last.Phase, LastSeparation: last.Separation}
	if widest != nil {
		res.Diagnostics.Conflicts = widest.Conflicts()
	}
	if len(res.Diagnostics.Conflicts) == 0 {
		e.logger.Warnf("%s infeasible after %d attempts, no direct mandatory/unavailable conflict", res.Month, len(res.Attempts))
	} else {
		e.logger.Warnf("%s infeasible after %d attempts, %d mandatory/unavailable conflicts", res.Month, len(res.Attempts), len(res.Diagnostics.Conflicts))
	}
	return res, State{Carry: OverlapCarry{}, Fairness: st.Fairness}, nil
}

// refine re-solves mm for the fairness tier with the base tier bounded by
// the optimum just found. If the second solve finds nothing the first
// solution stands.
func (e *Engine) refine(ctx context.Context, res *MonthResult, mm *MonthModel, first milp.Solution) (milp.Solution, error) {
	base := mm.Penalties.Objective(TierBase)
	best := first.Eval(base)
	lex := mm.Model.Clone()
	lex.Name += "/fairness"
	lex.AddConstraint("base_bound", base, milp.LessEq, best+e.cfg.LexTolerance*math.Max(1, math.Abs(best)))
	lex.SetObjective(mm.Penalties.Objective(TierFairness))

	sol, att, err := e.solve(ctx, lex)
	att.Phase, att.Separation, att.Lexicographic = mm.Phase, mm.Horizon.Separation, true
	res.Attempts = append(res.Attempts, att)
	if err != nil {
		return first, err
	}
	if sol.Status != milp.StatusOptimal {
		e.logger.Warnf("%s: fairness re-solve ended %s, keeping base solution", res.Month, sol.Status)
		return first, nil
	}
	return sol, nil
}

func (e *Engine) solve(ctx context.Context, m *milp.Model) (milp.Solution, Attempt, error) {
	if e.cfg.SolveTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(e.cfg.SolveTimeoutSeconds)*time.Second)
		defer cancel()
	}
	start := e.now()
	sol, err := e.solver.Solve(ctx, m)
	att := Attempt{Status: sol.Status.String(), Nodes: sol.Nodes, Duration: e.now().Sub(start)}
	if err != nil {
		att.Status = "error"
	}
	return sol, att, err
}
