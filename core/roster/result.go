package roster

import (
	"sort"
	"time"

	"github.com/kilianp07/rota/core/milp"
	"github.com/kilianp07/rota/core/model"
)

// MonthStatus is the outcome of a month.
type MonthStatus int

const (
	MonthSolved MonthStatus = iota
	MonthInfeasible
)

func (s MonthStatus) String() string {
	if s == MonthInfeasible {
		return "infeasible"
	}
	return "solved"
}

// MarshalText implements encoding.TextMarshaler.
func (s MonthStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Attempt records one solver call. Lexicographic marks the fairness
// re-solve of an accepted trial.
type Attempt struct {
	Phase         Phase         `json:"phase"`
	Separation    int           `json:"separation"`
	Lexicographic bool          `json:"lexicographic,omitempty"`
	Status        string        `json:"status"`
	Nodes         int           `json:"nodes"`
	Duration      time.Duration `json:"duration"`
}

// Diagnostics explain an unresolved month.
type Diagnostics struct {
	LastPhase      Phase `json:"last_phase"`
	LastSeparation int   `json:"last_separation"`
	// Conflicts are direct mandatory/unavailable contradictions. An empty
	// list means the month is infeasible for another reason, such as the
	// staffing band against separation or limits.
	Conflicts []Conflict `json:"conflicts"`
}

// MonthResult is the outcome of one month. Shifts is only set for solved
// months and covers every day of the month.
type MonthResult struct {
	Month             model.YearMonth         `json:"month"`
	Status            MonthStatus             `json:"status"`
	Phase             Phase                   `json:"phase"`
	Separation        int                     `json:"separation"`
	Shifts            map[model.Date][]string `json:"shifts,omitempty"`
	Carry             OverlapCarry            `json:"carry,omitempty"`
	BaseObjective     float64                 `json:"base_objective"`
	FairnessObjective float64                 `json:"fairness_objective"`
	Penalties         []PenaltyValue          `json:"penalties,omitempty"`
	Attempts          []Attempt               `json:"attempts"`
	Diagnostics       *Diagnostics            `json:"diagnostics,omitempty"`
}

// Err returns an *InfeasibleError for unresolved months and nil otherwise.
func (r MonthResult) Err() error {
	if r.Status != MonthInfeasible {
		return nil
	}
	e := &InfeasibleError{Month: r.Month}
	if r.Diagnostics != nil {
		e.Conflicts = r.Diagnostics.Conflicts
	}
	return e
}

// Assignments flattens Shifts in date order, workers in roster order.
func (r MonthResult) Assignments() []model.Assignment {
	days := make([]model.Date, 0, len(r.Shifts))
	for d := range r.Shifts {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	var out []model.Assignment
	for _, d := range days {
		for _, id := range r.Shifts[d] {
			out = append(out, model.Assignment{WorkerID: id, Date: d})
		}
	}
	return out
}

// Nodes is the total number of search nodes over all attempts.
func (r MonthResult) Nodes() int {
	n := 0
	for _, a := range r.Attempts {
		n += a.Nodes
	}
	return n
}

// Duration is the total solver time over all attempts.
func (r MonthResult) Duration() time.Duration {
	var d time.Duration
	for _, a := range r.Attempts {
		d += a.Duration
	}
	return d
}

// extract reads the accepted solution of mm into res and returns the
// fairness samples of the month.
func extract(res *MonthResult, mm *MonthModel, sol milp.Solution) []FairnessSample {
	h := mm.Horizon
	res.Status = MonthSolved
	res.Phase = mm.Phase
	res.Separation = h.Separation
	res.Shifts = make(map[model.Date][]string, len(h.MonthDays))
	res.Carry = OverlapCarry{}
	res.BaseObjective = sol.Eval(mm.Penalties.Objective(TierBase))
	res.FairnessObjective = sol.Eval(mm.Penalties.Objective(TierFairness))
	res.Penalties = mm.Penalties.Evaluate(sol)

	for _, d := range h.MonthDays {
		res.Shifts[d] = []string{}
	}
	samples := make([]FairnessSample, len(h.Workers))
	off := len(h.MonthDays)
	for w, hw := range h.Workers {
		id := hw.Worker.ID
		total := 0
		for i, d := range h.MonthDays {
			if mm.Assigned(sol, w, i) {
				res.Shifts[d] = append(res.Shifts[d], id)
				total++
			}
		}
		for k, d := range h.OverlapDays {
			if mm.Assigned(sol, w, off+k) {
				res.Carry[id] = append(res.Carry[id], d)
			}
		}
		samples[w] = FairnessSample{WorkerID: id, Limits: hw.Shifts, Mandatory: mm.Mandatory[w], Assigned: total}
	}
	return samples
}
