package roster

import (
	"sort"

	"github.com/kilianp07/rota/core/model"
)

// HorizonWorker is a worker with constraints merged over the whole horizon.
type HorizonWorker struct {
	Worker   model.Worker
	Shifts   model.Limits
	Weekends model.Limits
	// Next holds the following month's limits when the horizon has an
	// overlap window.
	Next *WorkerMonth
	ConstraintSet
}

// Horizon is the day sequence solved for one month: the month itself
// followed by an overlap window borrowed from the next month.
type Horizon struct {
	Month       model.YearMonth
	MonthDays   []model.Date
	OverlapDays []model.Date
	Separation  int
	Workers     []HorizonWorker
}

// Conflict is a worker both pinned to and barred from a day.
type Conflict struct {
	WorkerID string     `json:"worker_id"`
	Date     model.Date `json:"date"`
}

// BuildHorizon assembles the horizon of cur for separation distance m. The
// first m days of next are appended with their constraints; next is nil for
// the last month of a run. Carried overlap assignments inside cur become
// mandatory. History shifts less than m days before the month start block
// the days they would be too close to.
func BuildHorizon(cur MonthConstraints, next *MonthConstraints, m int, carry OverlapCarry, history []model.Assignment) Horizon {
	h := Horizon{
		Month:      cur.Month,
		MonthDays:  append([]model.Date(nil), cur.Days...),
		Separation: m,
	}
	if next != nil && m > 0 {
		n := m
		if n > len(next.Days) {
			n = len(next.Days)
		}
		h.OverlapDays = append([]model.Date(nil), next.Days[:n]...)
	}
	overlap := NewDateSet(h.OverlapDays...)
	month := NewDateSet(h.MonthDays...)

	var start model.Date
	if len(h.MonthDays) > 0 {
		start = h.MonthDays[0]
	}

	for _, wm := range cur.Workers {
		hw := HorizonWorker{
			Worker:        wm.Worker,
			Shifts:        wm.Shifts,
			Weekends:      wm.Weekends,
			ConstraintSet: wm.ConstraintSet.clone(),
		}
		if len(h.OverlapDays) > 0 {
			if nw, ok := next.Lookup(wm.Worker.ID); ok {
				hw.Next = &nw
				mergeWindow(hw.Mandatory, nw.Mandatory, overlap)
				mergeWindow(hw.Unavailable, nw.Unavailable, overlap)
				mergeWindow(hw.Liked, nw.Liked, overlap)
				mergeWindow(hw.Disliked, nw.Disliked, overlap)
			}
		}
		for _, d := range carry.Dates(wm.Worker.ID) {
			if month.Has(d) {
				hw.Mandatory.Add(d)
			}
		}
		if m > 0 && !start.IsZero() {
			for _, a := range history {
				if a.WorkerID != wm.Worker.ID {
					continue
				}
				gap := start.Sub(a.Date)
				if gap < 1 || gap > m {
					continue
				}
				for k := 0; k+gap <= m; k++ {
					if d := start.AddDays(k); month.Has(d) {
						hw.Unavailable.Add(d)
					}
				}
			}
		}
		h.Workers = append(h.Workers, hw)
	}
	return h
}

func mergeWindow(dst, src, window DateSet) {
	for d := range src {
		if window.Has(d) {
			dst[d] = struct{}{}
		}
	}
}

// Days returns month days followed by overlap days.
func (h Horizon) Days() []model.Date {
	out := make([]model.Date, 0, len(h.MonthDays)+len(h.OverlapDays))
	out = append(out, h.MonthDays...)
	return append(out, h.OverlapDays...)
}

// MandatoryCount is the number of mandatory days of worker i inside the
// month proper.
func (h Horizon) MandatoryCount(i int) int {
	n := 0
	for _, d := range h.MonthDays {
		if h.Workers[i].Mandatory.Has(d) {
			n++
		}
	}
	return n
}

// Conflicts lists every (worker, day) that is both mandatory and
// unavailable, ordered by worker then date.
func (h Horizon) Conflicts() []Conflict {
	var out []Conflict
	for _, w := range h.Workers {
		var days []model.Date
		for d := range w.Mandatory {
			if w.Unavailable.Has(d) {
				days = append(days, d)
			}
		}
		sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
		for _, d := range days {
			out = append(out, Conflict{WorkerID: w.Worker.ID, Date: d})
		}
	}
	return out
}
