package milp

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"
)

var (
	errNodeInfeasible = errors.New("node infeasible")
	errNodeUnbounded  = errors.New("node unbounded")
)

const (
	simplexTol = 1e-9
	fixTol     = 1e-9
)

// relaxation is the LP optimum of a node.
type relaxation struct {
	obj float64
	x   []float64
}

// lpRow is Σ coef·y (sense) rhs over shifted columns y = x - lo.
type lpRow struct {
	cols  []int
	coefs []float64
	sense Sense
	rhs   float64
}

// lpSolve points to the LP routine so tests can simulate solver failures.
var lpSolve = func(c []float64, a *mat.Dense, b []float64) ([]float64, error) {
	_, x, err := lp.Simplex(c, a, b, simplexTol, nil)
	return x, err
}

// solveRelaxation solves the LP relaxation of m under lo/hi. Fixed variables
// are substituted, rows without free variables are checked and dropped,
// redundant rows are dropped and variables that no remaining row touches are
// set to their cheapest bound. The rest is passed to the simplex in standard
// form with one slack column per inequality.
func solveRelaxation(m *Model, lo, hi []float64) (rel relaxation, err error) {
	n := len(m.vars)
	x := make([]float64, n)
	free := make([]bool, n)
	for j := 0; j < n; j++ {
		if hi[j]-lo[j] <= fixTol {
			x[j] = lo[j]
			if m.vars[j].Kind == Binary {
				x[j] = math.Round(lo[j])
			}
			continue
		}
		if math.IsInf(lo[j], -1) {
			return relaxation{}, fmt.Errorf("%w: variable %s has no lower bound", ErrNumerical, m.vars[j].Name)
		}
		free[j] = true
		x[j] = lo[j]
	}

	cost := make([]float64, n)
	for _, t := range m.obj.Terms {
		cost[t.Var] += t.Coef
	}

	rows := make([]lpRow, 0, len(m.cons))
	used := make([]bool, n)
	for _, c := range m.cons {
		row := lpRow{sense: c.Sense, rhs: c.RHS}
		for _, t := range c.Expr.Terms {
			if !free[t.Var] {
				row.rhs -= t.Coef * x[t.Var]
				continue
			}
			row.rhs -= t.Coef * lo[t.Var]
			row.cols = append(row.cols, int(t.Var))
			row.coefs = append(row.coefs, t.Coef)
		}
		minA, maxA := activity(row, lo, hi)
		tol := feasTol * (1 + math.Abs(row.rhs))
		switch row.sense {
		case LessEq:
			if minA > row.rhs+tol {
				return relaxation{}, errNodeInfeasible
			}
			if maxA <= row.rhs+tol {
				continue
			}
		case GreaterEq:
			if maxA < row.rhs-tol {
				return relaxation{}, errNodeInfeasible
			}
			if minA >= row.rhs-tol {
				continue
			}
		case Equal:
			if minA > row.rhs+tol || maxA < row.rhs-tol {
				return relaxation{}, errNodeInfeasible
			}
			if len(row.cols) == 0 {
				continue
			}
		}
		for _, j := range row.cols {
			used[j] = true
		}
		rows = append(rows, row)
	}

	// Variables outside every row sit at the bound their cost prefers.
	for j := 0; j < n; j++ {
		if !free[j] || used[j] {
			continue
		}
		switch {
		case cost[j] >= 0:
			x[j] = lo[j]
		case !math.IsInf(hi[j], 1):
			x[j] = hi[j]
		default:
			return relaxation{}, errNodeUnbounded
		}
	}

	implied := impliedUpper(rows, n)
	col := make(map[int]int)
	var cols []int
	for j := 0; j < n; j++ {
		if used[j] {
			col[j] = len(cols)
			cols = append(cols, j)
		}
	}
	for _, j := range cols {
		u := hi[j] - lo[j]
		if math.IsInf(u, 1) || implied[j] <= u+feasTol {
			continue
		}
		rows = append(rows, lpRow{cols: []int{j}, coefs: []float64{1}, sense: LessEq, rhs: u})
	}

	if len(rows) > 0 {
		y, err := solveStandard(rows, cols, col, cost)
		if err != nil {
			return relaxation{}, err
		}
		for k, j := range cols {
			v := lo[j] + y[k]
			x[j] = math.Min(math.Max(v, lo[j]), hi[j])
		}
	}
	return relaxation{obj: m.obj.Value(x), x: x}, nil
}

// activity returns the range of Σ coef·y for y in [0, hi-lo].
func activity(row lpRow, lo, hi []float64) (minA, maxA float64) {
	for k, j := range row.cols {
		a := row.coefs[k]
		u := hi[j] - lo[j]
		if a > 0 {
			maxA += a * u
		} else {
			minA += a * u
		}
	}
	return minA, maxA
}

// impliedUpper derives upper bounds on columns from rows whose coefficients
// are all non-negative, so their explicit bound rows can be left out.
func impliedUpper(rows []lpRow, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Inf(1)
	}
	for _, r := range rows {
		sign := 1.0
		switch r.sense {
		case GreaterEq:
			sign = -1
		case Equal:
			continue
		}
		rhs := sign * r.rhs
		if rhs < 0 {
			continue
		}
		nonNeg := true
		for _, a := range r.coefs {
			if sign*a < 0 {
				nonNeg = false
				break
			}
		}
		if !nonNeg {
			continue
		}
		for k, j := range r.cols {
			a := sign * r.coefs[k]
			if a > zeroCoef {
				out[j] = math.Min(out[j], rhs/a)
			}
		}
	}
	return out
}

// solveStandard builds min cᵀy s.t. A y (+ s) = b, y, s >= 0 and runs the
// simplex. It returns y.
func solveStandard(rows []lpRow, cols []int, col map[int]int, cost []float64) (y []float64, err error) {
	nSlack := 0
	for _, r := range rows {
		if r.sense != Equal {
			nSlack++
		}
	}
	m := len(rows)
	n := len(cols) + nSlack
	if m > n {
		return nil, fmt.Errorf("%w: %d rows for %d columns", ErrNumerical, m, n)
	}
	a := mat.NewDense(m, n, nil)
	b := make([]float64, m)
	slack := len(cols)
	for i, r := range rows {
		for k, j := range r.cols {
			a.Set(i, col[j], a.At(i, col[j])+r.coefs[k])
		}
		b[i] = r.rhs
		switch r.sense {
		case LessEq:
			a.Set(i, slack, 1)
			slack++
		case GreaterEq:
			a.Set(i, slack, -1)
			slack++
		}
	}
	c := make([]float64, n)
	for k, j := range cols {
		c[k] = cost[j]
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: simplex panic: %v", ErrNumerical, r)
		}
	}()
	sol, err := lpSolve(c, a, b)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return nil, errNodeInfeasible
	case errors.Is(err, lp.ErrUnbounded):
		return nil, errNodeUnbounded
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrNumerical, err)
	}
	return sol[:len(cols)], nil
}
