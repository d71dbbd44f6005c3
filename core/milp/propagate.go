package milp

import "math"

const (
	feasTol   = 1e-6
	intTol    = 1e-6
	zeroCoef  = 1e-12
	maxRounds = 50
)

// propagate tightens lo/hi in place using activity bounds of every row until
// nothing changes. It returns false when a row cannot be satisfied.
func propagate(m *Model, lo, hi []float64) bool {
	for j := range lo {
		if lo[j] > hi[j]+feasTol {
			return false
		}
	}
	for round := 0; round < maxRounds; round++ {
		changed := false
		for _, c := range m.cons {
			if c.Sense == LessEq || c.Sense == Equal {
				ok, ch := tightenRow(m, c.Expr.Terms, c.RHS, 1, lo, hi)
				if !ok {
					return false
				}
				changed = changed || ch
			}
			if c.Sense == GreaterEq || c.Sense == Equal {
				ok, ch := tightenRow(m, c.Expr.Terms, c.RHS, -1, lo, hi)
				if !ok {
					return false
				}
				changed = changed || ch
			}
		}
		if !changed {
			return true
		}
	}
	return true
}

// tightenRow handles sign·Σ a·x <= sign·rhs.
func tightenRow(m *Model, terms []Term, rhs, sign float64, lo, hi []float64) (ok, changed bool) {
	r := sign * rhs
	minAct := 0.0
	infCount := 0
	infIdx := -1
	contrib := make([]float64, len(terms))
	for i, t := range terms {
		a := sign * t.Coef
		var c float64
		if a > 0 {
			c = a * lo[t.Var]
		} else {
			c = a * hi[t.Var]
		}
		contrib[i] = c
		if math.IsInf(c, 0) || math.IsNaN(c) {
			infCount++
			infIdx = i
			continue
		}
		minAct += c
	}
	if infCount == 0 && minAct > r+feasTol*(1+math.Abs(r)) {
		return false, false
	}
	if infCount > 1 {
		return true, false
	}
	for i, t := range terms {
		a := sign * t.Coef
		if math.Abs(a) < zeroCoef {
			continue
		}
		var rest float64
		if infCount == 1 {
			if i != infIdx {
				continue
			}
			rest = minAct
		} else {
			rest = minAct - contrib[i]
		}
		bound := (r - rest) / a
		v := t.Var
		integer := m.vars[v].Kind == Binary
		if a > 0 {
			if integer {
				bound = math.Floor(bound + intTol)
			}
			if bound < hi[v]-tightenStep(integer, hi[v]) {
				hi[v] = bound
				changed = true
			}
		} else {
			if integer {
				bound = math.Ceil(bound - intTol)
			}
			if bound > lo[v]+tightenStep(integer, lo[v]) {
				lo[v] = bound
				changed = true
			}
		}
		if lo[v] > hi[v] {
			if integer || lo[v]-hi[v] > feasTol*(1+math.Abs(hi[v])) {
				return false, changed
			}
			lo[v] = hi[v]
		}
	}
	return true, changed
}

// tightenStep is the smallest improvement worth recording. Continuous bounds
// need a margin, otherwise two rows can keep shaving each other forever.
func tightenStep(integer bool, cur float64) float64 {
	if integer {
		return 0.5
	}
	if math.IsInf(cur, 0) {
		return 0
	}
	return 1e-7 * (1 + math.Abs(cur))
}
