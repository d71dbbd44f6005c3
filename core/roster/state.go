package roster

import (
	"math"
	"sort"

	"github.com/kilianp07/rota/core/model"
)

// OverlapCarry maps a worker to the overlap-window days assigned to them
// while solving the previous month. The next month treats them as mandatory.
type OverlapCarry map[string][]model.Date

// Dates returns the carried days of id.
func (c OverlapCarry) Dates(id string) []model.Date { return c[id] }

// Len returns the number of carried assignments.
func (c OverlapCarry) Len() int {
	n := 0
	for _, ds := range c {
		n += len(ds)
	}
	return n
}

// Assignments flattens the carry in date then worker order.
func (c OverlapCarry) Assignments() []model.Assignment {
	var out []model.Assignment
	for id, ds := range c {
		for _, d := range ds {
			out = append(out, model.Assignment{WorkerID: id, Date: d})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].WorkerID < out[j].WorkerID
	})
	return out
}

// FairnessTotals are the running free-shift totals of one worker.
type FairnessTotals struct {
	ActualFree float64 `json:"actual_free"`
	TargetFree float64 `json:"target_free"`
}

// Imbalance is how many free shifts the worker is owed.
func (t FairnessTotals) Imbalance() float64 { return t.TargetFree - t.ActualFree }

// FairnessState is the running free-shift ledger across solved months. It is
// never mutated; Update returns a new value.
type FairnessState map[string]FairnessTotals

// DesiredFree is the number of non-mandatory shifts worker id should get in
// a month with the given limits and mandatory count: the limit midpoint
// corrected by alpha times the accumulated imbalance, clamped to what the
// limits still allow.
func (f FairnessState) DesiredFree(id string, l model.Limits, mandatory int, alpha float64) float64 {
	mand := float64(mandatory)
	base := math.Max(0, l.Midpoint()-mand)
	lo := math.Max(0, float64(l.Min)-mand)
	hi := math.Max(0, float64(l.Max)-mand)
	want := base + alpha*f[id].Imbalance()
	return math.Min(math.Max(want, lo), hi)
}

// FairnessSample is the outcome of one worker in an accepted month.
type FairnessSample struct {
	WorkerID  string
	Limits    model.Limits
	Mandatory int
	Assigned  int
}

// Update folds a solved month into the ledger and returns the new state.
func (f FairnessState) Update(samples []FairnessSample) FairnessState {
	out := make(FairnessState, len(f)+len(samples))
	for id, t := range f {
		out[id] = t
	}
	for _, s := range samples {
		mand := float64(s.Mandatory)
		t := out[s.WorkerID]
		t.ActualFree += math.Max(0, float64(s.Assigned)-mand)
		t.TargetFree += math.Max(0, s.Limits.Midpoint()-mand)
		out[s.WorkerID] = t
	}
	return out
}

// State is threaded from one month to the next.
type State struct {
	Carry    OverlapCarry  `json:"carry"`
	Fairness FairnessState `json:"fairness"`
}

// NewState returns the state of a run that has not solved any month yet.
func NewState() State {
	return State{Carry: OverlapCarry{}, Fairness: FairnessState{}}
}
