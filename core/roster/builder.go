package roster

import (
	"fmt"
	"time"

	"github.com/kilianp07/rota/core/milp"
	"github.com/kilianp07/rota/core/model"
)

// Phase selects how shift and weekend limits enter the model.
type Phase int

const (
	// PhaseHard enforces limits as constraints.
	PhaseHard Phase = iota
	// PhaseSoft turns limit violations into penalized slacks.
	PhaseSoft
)

func (p Phase) String() string {
	if p == PhaseSoft {
		return "soft"
	}
	return "hard"
}

// MarshalText implements encoding.TextMarshaler.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

const assignPriority = 10

// MonthModel is the mixed 0-1 model of one horizon together with the
// handles needed to read a solution back.
type MonthModel struct {
	Model     *milp.Model
	Horizon   Horizon
	Phase     Phase
	Penalties Penalties
	// Mandatory counts each worker's mandatory days inside the month.
	Mandatory []int
	// DesiredFree is the fairness target of each worker.
	DesiredFree []float64

	x [][]milp.Var
}

// Assign returns the assignment variable of worker w on day index i of
// Horizon.Days().
func (mm *MonthModel) Assign(w, i int) milp.Var { return mm.x[w][i] }

// Assigned reports whether worker w works day index i in sol.
func (mm *MonthModel) Assigned(sol milp.Solution, w, i int) bool {
	return sol.Value(mm.x[w][i]) > 0.5
}

// builder accumulates the model of one horizon.
type builder struct {
	mm   *MonthModel
	m    *milp.Model
	cfg  Config
	days []model.Date
}

// BuildModel builds the model of h for phase. fair supplies the running
// imbalance used for the monthly balance targets.
func BuildModel(h Horizon, phase Phase, fair FairnessState, cfg Config) *MonthModel {
	b := &builder{
		mm: &MonthModel{
			Model:   milp.NewModel(fmt.Sprintf("%s/M%d/%s", h.Month, h.Separation, phase)),
			Horizon: h,
			Phase:   phase,
		},
		cfg:  cfg,
		days: h.Days(),
	}
	b.m = b.mm.Model

	b.assignments()
	b.separation()
	b.band()
	b.supervision()
	b.overlapCap()
	b.limits()
	b.preferences()
	b.weeklyOverload()
	b.repeatedWeekdays()
	b.pairings()
	b.balance(fair)

	obj := b.mm.Penalties.Objective(TierBase)
	if cfg.WeightedSum {
		obj = b.mm.Penalties.Objective(TierBase, TierFairness)
	}
	b.m.SetObjective(obj)
	return b.mm
}

func (b *builder) term(name, worker string, tier Tier, weight float64, e milp.Expr) {
	if len(e.Terms) == 0 && e.Constant == 0 {
		return
	}
	b.mm.Penalties = append(b.mm.Penalties, PenaltyTerm{Name: name, Worker: worker, Tier: tier, Weight: weight, Expr: e})
}

// monthSum is Σ x[w,d] over month days accepted by keep.
func (b *builder) monthSum(w int, keep func(model.Date) bool) milp.Expr {
	var e milp.Expr
	for i, d := range b.mm.Horizon.MonthDays {
		if keep == nil || keep(d) {
			e.Add(b.mm.x[w][i], 1)
		}
	}
	return e
}

func (b *builder) assignments() {
	h := b.mm.Horizon
	b.mm.x = make([][]milp.Var, len(h.Workers))
	for w, hw := range h.Workers {
		b.mm.x[w] = make([]milp.Var, len(b.days))
		for i, d := range b.days {
			v := b.m.Binary(fmt.Sprintf("x[%s,%s]", hw.Worker.ID, d))
			b.m.SetPriority(v, assignPriority)
			if hw.Mandatory.Has(d) {
				b.m.Fix(v, 1)
			}
			if hw.Unavailable.Has(d) {
				b.m.Fix(v, 0)
			}
			b.mm.x[w][i] = v
		}
	}
}

func (b *builder) separation() {
	sep := b.mm.Horizon.Separation
	if sep <= 0 {
		return
	}
	for w, hw := range b.mm.Horizon.Workers {
		for i := range b.days {
			for j := i + 1; j < len(b.days) && b.days[j].Sub(b.days[i]) <= sep; j++ {
				name := fmt.Sprintf("sep[%s,%s,%s]", hw.Worker.ID, b.days[i], b.days[j])
				b.m.AddConstraint(name, milp.Sum(b.mm.x[w][i], b.mm.x[w][j]), milp.LessEq, 1)
			}
		}
	}
}

func (b *builder) band() {
	s1, s2 := float64(b.cfg.StaffMin), float64(b.cfg.StaffMax)
	for i, d := range b.days {
		var e milp.Expr
		for w := range b.mm.Horizon.Workers {
			e.Add(b.mm.x[w][i], 1)
		}
		if s1 == s2 {
			b.m.AddConstraint(fmt.Sprintf("band[%s]", d), e, milp.Equal, s1)
			continue
		}
		b.m.AddConstraint(fmt.Sprintf("band_min[%s]", d), e, milp.GreaterEq, s1)
		b.m.AddConstraint(fmt.Sprintf("band_max[%s]", d), e, milp.LessEq, s2)
	}
}

// supervision keeps juniors away from workers who cannot supervise and
// allows at most one junior per day.
func (b *builder) supervision() {
	var juniors, unsupervising []int
	for w, hw := range b.mm.Horizon.Workers {
		if hw.Worker.Category == model.Junior {
			juniors = append(juniors, w)
		}
		if !hw.Worker.CanSupervise {
			unsupervising = append(unsupervising, w)
		}
	}
	for i, d := range b.days {
		for _, r := range juniors {
			for _, n := range unsupervising {
				if r == n {
					continue
				}
				name := fmt.Sprintf("supervise[%s,%s,%s]", b.mm.Horizon.Workers[r].Worker.ID, b.mm.Horizon.Workers[n].Worker.ID, d)
				b.m.AddConstraint(name, milp.Sum(b.mm.x[r][i], b.mm.x[n][i]), milp.LessEq, 1)
			}
		}
		if len(juniors) > 1 {
			var e milp.Expr
			for _, r := range juniors {
				e.Add(b.mm.x[r][i], 1)
			}
			b.m.AddConstraint(fmt.Sprintf("juniors[%s]", d), e, milp.LessEq, 1)
		}
	}
}

// overlapCap bounds overlap-window shifts by the next month's maxima.
func (b *builder) overlapCap() {
	h := b.mm.Horizon
	if b.cfg.DisableOverlapCap || len(h.OverlapDays) == 0 {
		return
	}
	off := len(h.MonthDays)
	for w, hw := range h.Workers {
		if hw.Next == nil {
			continue
		}
		var all, weekend milp.Expr
		for k, d := range h.OverlapDays {
			all.Add(b.mm.x[w][off+k], 1)
			if d.IsWeekend() {
				weekend.Add(b.mm.x[w][off+k], 1)
			}
		}
		b.m.AddConstraint(fmt.Sprintf("overlap_cap[%s]", hw.Worker.ID), all, milp.LessEq, float64(hw.Next.Shifts.Max))
		if len(weekend.Terms) > 0 {
			b.m.AddConstraint(fmt.Sprintf("overlap_weekend_cap[%s]", hw.Worker.ID), weekend, milp.LessEq, float64(hw.Next.Weekends.Max))
		}
	}
}

func (b *builder) limits() {
	for w, hw := range b.mm.Horizon.Workers {
		total := b.monthSum(w, nil)
		weekend := b.monthSum(w, model.Date.IsWeekend)
		b.limit(hw.Worker.ID, "shifts", total, hw.Shifts, PenaltyShiftUnder, PenaltyShiftOver, b.cfg.Weights.ShiftLimitViolation)
		b.limit(hw.Worker.ID, "weekends", weekend, hw.Weekends, PenaltyWeekendUnder, PenaltyWeekendOver, b.cfg.Weights.WeekendLimitViolation)
	}
}

func (b *builder) limit(id, what string, e milp.Expr, l model.Limits, under, over string, weight float64) {
	lo, hi := float64(l.Min), float64(l.Max)
	if b.mm.Phase == PhaseHard {
		b.m.AddConstraint(fmt.Sprintf("%s_min[%s]", what, id), e, milp.GreaterEq, lo)
		b.m.AddConstraint(fmt.Sprintf("%s_max[%s]", what, id), e, milp.LessEq, hi)
		return
	}
	u := b.m.Continuous(fmt.Sprintf("%s_under[%s]", what, id), 0)
	o := b.m.Continuous(fmt.Sprintf("%s_over[%s]", what, id), 0)
	withUnder := e.Clone()
	withUnder.Add(u, 1)
	b.m.AddConstraint(fmt.Sprintf("%s_min[%s]", what, id), withUnder, milp.GreaterEq, lo)
	withOver := e.Clone()
	withOver.Add(o, -1)
	b.m.AddConstraint(fmt.Sprintf("%s_max[%s]", what, id), withOver, milp.LessEq, hi)
	b.term(under, id, TierBase, weight, milp.Sum(u))
	b.term(over, id, TierBase, weight, milp.Sum(o))
}

func (b *builder) preferences() {
	for w, hw := range b.mm.Horizon.Workers {
		var disliked, missed milp.Expr
		for i, d := range b.days {
			if hw.Disliked.Has(d) {
				disliked.Add(b.mm.x[w][i], 1)
			}
			if hw.Liked.Has(d) && b.cfg.Weights.MissedLikedDay > 0 {
				mv := b.m.Binary(fmt.Sprintf("missed[%s,%s]", hw.Worker.ID, d))
				b.m.AddConstraint(fmt.Sprintf("missed[%s,%s]", hw.Worker.ID, d), milp.Sum(mv, b.mm.x[w][i]), milp.GreaterEq, 1)
				missed.Add(mv, 1)
			}
		}
		b.term(PenaltyDislikedDay, hw.Worker.ID, TierBase, b.cfg.Weights.DislikedDay, disliked)
		b.term(PenaltyMissedLikedDay, hw.Worker.ID, TierBase, b.cfg.Weights.MissedLikedDay, missed)
	}
}

// weeklyOverload flags 7-day chunks of the month, counted from its first
// day, where a worker's average exceeds the weekly baseline:
// |week|·v ≥ Σx − baseline.
func (b *builder) weeklyOverload() {
	if b.cfg.Weights.ExcessWeeklyShifts == 0 {
		return
	}
	month := b.mm.Horizon.MonthDays
	baseline := float64(b.cfg.WeeklyBaseline)
	for w, hw := range b.mm.Horizon.Workers {
		var flags milp.Expr
		for start := 0; start < len(month); start += 7 {
			end := start + 7
			if end > len(month) {
				end = len(month)
			}
			if float64(end-start) <= baseline {
				continue
			}
			v := b.m.Binary(fmt.Sprintf("week[%s,%d]", hw.Worker.ID, start/7))
			row := milp.Expr{}
			row.Add(v, float64(end-start))
			for i := start; i < end; i++ {
				row.Add(b.mm.x[w][i], -1)
			}
			b.m.AddConstraint(fmt.Sprintf("week[%s,%d]", hw.Worker.ID, start/7), row, milp.GreaterEq, -baseline)
			flags.Add(v, 1)
		}
		b.term(PenaltyWeeklyOverload, hw.Worker.ID, TierBase, b.cfg.Weights.ExcessWeeklyShifts, flags)
	}
}

// repeatedWeekdays penalizes, for every weekday, each occurrence after the
// first by the number of that weekday's days still to come, which is
// Σ_i max(0, Σ_{j≤i} x_j − 1) over the month's days of that weekday.
// Each prefix term is clamped at zero through s ≥ 0, so a weekday that is
// worked at most once contributes nothing rather than a negative amount.
func (b *builder) repeatedWeekdays() {
	if b.cfg.Weights.RepeatedWeekday == 0 {
		return
	}
	month := b.mm.Horizon.MonthDays
	for w, hw := range b.mm.Horizon.Workers {
		var streak milp.Expr
		for wd := time.Sunday; wd <= time.Saturday; wd++ {
			var idx []int
			for i, d := range month {
				if d.Weekday() == wd {
					idx = append(idx, i)
				}
			}
			for k := 1; k < len(idx); k++ {
				s := b.m.Continuous(fmt.Sprintf("repeat[%s,%s,%d]", hw.Worker.ID, wd, k), 0)
				row := milp.Sum(s)
				for _, i := range idx[:k+1] {
					row.Add(b.mm.x[w][i], -1)
				}
				b.m.AddConstraint(fmt.Sprintf("repeat[%s,%s,%d]", hw.Worker.ID, wd, k), row, milp.GreaterEq, -1)
				streak.Add(s, 1)
			}
		}
		b.term(PenaltyRepeatedWeekday, hw.Worker.ID, TierBase, b.cfg.Weights.RepeatedWeekday, streak)
	}
}

// pairings flags worker pairs that share more than one day of the horizon.
// No pair can share a day when at most one worker is on duty. Soft terms
// with a zero weight are not modelled.
func (b *builder) pairings() {
	if b.cfg.StaffMax < 2 || b.cfg.Weights.RepeatedPairing == 0 {
		return
	}
	ws := b.mm.Horizon.Workers
	n := float64(len(b.days))
	for p := 0; p < len(ws); p++ {
		for q := p + 1; q < len(ws); q++ {
			pair := ws[p].Worker.ID + "+" + ws[q].Worker.ID
			var together milp.Expr
			for i, d := range b.days {
				t := b.m.Binary(fmt.Sprintf("together[%s,%s]", pair, d))
				xp, xq := b.mm.x[p][i], b.mm.x[q][i]
				and := milp.Sum(t)
				and.Add(xp, -1)
				and.Add(xq, -1)
				b.m.AddConstraint(fmt.Sprintf("together_and[%s,%s]", pair, d), and, milp.GreaterEq, -1)
				lp := milp.Sum(t)
				lp.Add(xp, -1)
				b.m.AddConstraint(fmt.Sprintf("together_p[%s,%s]", pair, d), lp, milp.LessEq, 0)
				lq := milp.Sum(t)
				lq.Add(xq, -1)
				b.m.AddConstraint(fmt.Sprintf("together_q[%s,%s]", pair, d), lq, milp.LessEq, 0)
				together.Add(t, 1)
			}
			v := b.m.Binary(fmt.Sprintf("pair[%s]", pair))
			row := milp.Expr{}
			row.Add(v, n)
			row.AddExpr(together, -1)
			b.m.AddConstraint(fmt.Sprintf("pair[%s]", pair), row, milp.GreaterEq, -1)
			b.term(PenaltyRepeatedPairing, pair, TierBase, b.cfg.Weights.RepeatedPairing, milp.Sum(v))
		}
	}
}

// balance adds the deviation of each worker's free shifts from the fairness
// target.
func (b *builder) balance(fair FairnessState) {
	h := b.mm.Horizon
	b.mm.Mandatory = make([]int, len(h.Workers))
	b.mm.DesiredFree = make([]float64, len(h.Workers))
	for w, hw := range h.Workers {
		mand := h.MandatoryCount(w)
		desired := fair.DesiredFree(hw.Worker.ID, hw.Shifts, mand, b.cfg.BalanceAlpha)
		b.mm.Mandatory[w] = mand
		b.mm.DesiredFree[w] = desired

		total := b.monthSum(w, nil)
		pos := b.m.Continuous(fmt.Sprintf("dev_pos[%s]", hw.Worker.ID), 0)
		neg := b.m.Continuous(fmt.Sprintf("dev_neg[%s]", hw.Worker.ID), 0)
		// pos ≥ (total − mand) − desired
		over := total.Scaled(-1)
		over.Add(pos, 1)
		b.m.AddConstraint(fmt.Sprintf("dev_pos[%s]", hw.Worker.ID), over, milp.GreaterEq, -float64(mand)-desired)
		// neg ≥ desired − (total − mand)
		under := total.Clone()
		under.Add(neg, 1)
		b.m.AddConstraint(fmt.Sprintf("dev_neg[%s]", hw.Worker.ID), under, milp.GreaterEq, desired+float64(mand))
		b.term(PenaltyMonthlyBalance, hw.Worker.ID, TierFairness, b.cfg.Weights.MonthlyBalance, milp.Sum(pos, neg))
	}
}
