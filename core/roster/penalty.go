package roster

import "github.com/kilianp07/rota/core/milp"

// Tier groups penalty terms for lexicographic composition.
type Tier int

const (
	// TierBase holds preference, pattern and limit-violation penalties.
	TierBase Tier = iota
	// TierFairness holds the monthly balance deviation.
	TierFairness
)

func (t Tier) String() string {
	if t == TierFairness {
		return "fairness"
	}
	return "base"
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

// Penalty term names.
const (
	PenaltyDislikedDay     = "disliked_day"
	PenaltyMissedLikedDay  = "missed_liked_day"
	PenaltyWeeklyOverload  = "weekly_overload"
	PenaltyRepeatedWeekday = "repeated_weekday"
	PenaltyRepeatedPairing = "repeated_pairing"
	PenaltyShiftUnder      = "shift_limit_under"
	PenaltyShiftOver       = "shift_limit_over"
	PenaltyWeekendUnder    = "weekend_limit_under"
	PenaltyWeekendOver     = "weekend_limit_over"
	PenaltyMonthlyBalance  = "monthly_balance"
)

// PenaltyTerm is one weighted linear term of the objective. Worker is the
// worker ID, or both IDs joined by "+" for pairing terms.
type PenaltyTerm struct {
	Name   string
	Worker string
	Tier   Tier
	Weight float64
	Expr   milp.Expr
}

// Penalties is an ordered list of terms.
type Penalties []PenaltyTerm

// Objective sums weight·expr over the terms of the given tiers, in
// declaration order. With no tiers every term is included.
func (p Penalties) Objective(tiers ...Tier) milp.Expr {
	var out milp.Expr
	for _, t := range p {
		if len(tiers) > 0 && !hasTier(tiers, t.Tier) {
			continue
		}
		out.AddExpr(t.Expr, t.Weight)
	}
	return out
}

func hasTier(tiers []Tier, t Tier) bool {
	for _, x := range tiers {
		if x == t {
			return true
		}
	}
	return false
}

// PenaltyValue is a term evaluated at a solution.
type PenaltyValue struct {
	Name     string  `json:"name"`
	Worker   string  `json:"worker"`
	Tier     Tier    `json:"tier"`
	Weight   float64 `json:"weight"`
	Raw      float64 `json:"raw"`
	Weighted float64 `json:"weighted"`
}

// Evaluate returns the value of every term at sol, skipping zero ones.
func (p Penalties) Evaluate(sol milp.Solution) []PenaltyValue {
	var out []PenaltyValue
	for _, t := range p {
		raw := sol.Eval(t.Expr)
		if raw > -1e-9 && raw < 1e-9 {
			continue
		}
		out = append(out, PenaltyValue{
			Name:     t.Name,
			Worker:   t.Worker,
			Tier:     t.Tier,
			Weight:   t.Weight,
			Raw:      raw,
			Weighted: t.Weight * raw,
		})
	}
	return out
}
