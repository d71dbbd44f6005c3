package roster

import (
	"sort"

	"github.com/kilianp07/rota/core/model"
)

// DateSet is a set of calendar days.
type DateSet map[model.Date]struct{}

// NewDateSet returns a set holding dates.
func NewDateSet(dates ...model.Date) DateSet {
	s := make(DateSet, len(dates))
	for _, d := range dates {
		s[d] = struct{}{}
	}
	return s
}

// Add inserts d, allocating the set when needed, and returns it.
func (s DateSet) Add(d model.Date) DateSet {
	if s == nil {
		s = make(DateSet)
	}
	s[d] = struct{}{}
	return s
}

// Has reports whether d is in the set.
func (s DateSet) Has(d model.Date) bool {
	_, ok := s[d]
	return ok
}

// Sorted returns the dates in calendar order.
func (s DateSet) Sorted() []model.Date {
	out := make([]model.Date, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (s DateSet) clone() DateSet {
	out := make(DateSet, len(s))
	for d := range s {
		out[d] = struct{}{}
	}
	return out
}

// ConstraintSet holds the normalized day constraints of one worker.
type ConstraintSet struct {
	Mandatory   DateSet
	Unavailable DateSet
	Liked       DateSet
	Disliked    DateSet
}

func (c ConstraintSet) clone() ConstraintSet {
	return ConstraintSet{
		Mandatory:   c.Mandatory.clone(),
		Unavailable: c.Unavailable.clone(),
		Liked:       c.Liked.clone(),
		Disliked:    c.Disliked.clone(),
	}
}

// WorkerMonth is a worker with the limits and constraints of one month.
type WorkerMonth struct {
	Worker   model.Worker
	Shifts   model.Limits
	Weekends model.Limits
	ConstraintSet
}

// MonthConstraints are the per-worker constraints of one month. Days is the
// month's calendar; Workers keep roster order.
type MonthConstraints struct {
	Month   model.YearMonth
	Days    []model.Date
	Workers []WorkerMonth
}

// Extract normalizes the roster records that fall inside ym. Vacation and
// congress leave block the day before and after as well; a skip blocks its
// day only and overrides a mandatory shift on the same day.
func Extract(r model.Roster, ym model.YearMonth) MonthConstraints {
	mc := MonthConstraints{Month: ym, Days: ym.Days()}
	idx := make(map[string]int, len(r.Workers))
	for _, w := range r.Workers {
		shifts, weekends := w.LimitsFor(ym)
		idx[w.ID] = len(mc.Workers)
		mc.Workers = append(mc.Workers, WorkerMonth{
			Worker:   w,
			Shifts:   shifts,
			Weekends: weekends,
			ConstraintSet: ConstraintSet{
				Mandatory:   DateSet{},
				Unavailable: DateSet{},
				Liked:       DateSet{},
				Disliked:    DateSet{},
			},
		})
	}

	skipped := make(map[string]DateSet)
	for _, l := range r.Leaves {
		i, ok := idx[l.WorkerID]
		if !ok {
			continue
		}
		spread := l.Kind.Spread()
		for k := -spread; k <= spread; k++ {
			d := l.Date.AddDays(k)
			if ym.Contains(d) {
				mc.Workers[i].Unavailable.Add(d)
			}
		}
		if l.Kind == model.LeaveSkip {
			skipped[l.WorkerID] = skipped[l.WorkerID].Add(l.Date)
		}
	}

	for _, p := range r.Preferences {
		i, ok := idx[p.WorkerID]
		if !ok || !ym.Contains(p.Date) {
			continue
		}
		switch p.Kind {
		case model.Prefer:
			mc.Workers[i].Liked.Add(p.Date)
		case model.PreferNot:
			mc.Workers[i].Disliked.Add(p.Date)
		}
	}

	for i, wm := range mc.Workers {
		for _, d := range mc.Days {
			if restsBefore(wm.Worker, d) && ym.Contains(d.AddDays(-1)) {
				mc.Workers[i].Unavailable.Add(d.AddDays(-1))
			}
		}
	}

	for _, m := range r.Mandatory {
		i, ok := idx[m.WorkerID]
		if !ok || !ym.Contains(m.Date) || skipped[m.WorkerID].Has(m.Date) {
			continue
		}
		mc.Workers[i].Mandatory.Add(m.Date)
	}
	return mc
}

// Lookup returns the entry of worker id.
func (mc MonthConstraints) Lookup(id string) (WorkerMonth, bool) {
	for _, w := range mc.Workers {
		if w.Worker.ID == id {
			return w, true
		}
	}
	return WorkerMonth{}, false
}

func restsBefore(w model.Worker, d model.Date) bool {
	wd := d.Weekday()
	for _, x := range w.RestBefore {
		if x == wd {
			return true
		}
	}
	return false
}
