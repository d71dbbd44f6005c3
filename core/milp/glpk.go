package milp

import (
	"context"
	"fmt"
	"math"
	"runtime"

	"github.com/lukpank/go-glpk/glpk"
)

// GLPK solves models with the GNU Linear Programming Kit: a primal simplex
// for the root relaxation followed by GLPK's branch and cut. Branching
// priorities are not passed on.
//
// GLPK cannot be interrupted, so each call runs on its own locked OS thread.
// When ctx ends first Solve returns ErrTimeout at once and the abandoned
// problem is released when GLPK returns.
type GLPK struct{}

// NewGLPK returns a GLPK solver.
func NewGLPK() *GLPK { return &GLPK{} }

// glpkSolve runs one solve on the calling thread; tests replace it.
var glpkSolve = solveGLPK

type glpkResult struct {
	sol Solution
	err error
}

// Solve implements Solver.
func (g *GLPK) Solve(ctx context.Context, m *Model) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, fmt.Errorf("%w before start: %v", ErrTimeout, err)
	}
	model, solve := m.Clone(), glpkSolve
	done := make(chan glpkResult, 1)
	go func() {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		sol, err := solve(model)
		done <- glpkResult{sol: sol, err: err}
	}()
	select {
	case r := <-done:
		return r.sol, r.err
	case <-ctx.Done():
		return Solution{}, fmt.Errorf("%w: glpk: %v", ErrTimeout, ctx.Err())
	}
}

func solveGLPK(m *Model) (Solution, error) {
	for _, v := range m.vars {
		lo, hi := columnBounds(v)
		if lo > hi {
			return Solution{Status: StatusInfeasible}, nil
		}
	}

	lp := glpk.New()
	defer lp.Delete()
	lp.SetProbName(glpkName(m.Name))
	lp.SetObjDir(glpk.ObjDir(glpk.MIN))

	if n := len(m.vars); n > 0 {
		lp.AddCols(n)
	}
	for j, v := range m.vars {
		col := j + 1
		lp.SetColName(col, glpkName(v.Name))
		if v.Kind == Binary {
			lp.SetColKind(col, glpk.VarType(glpk.IV))
		}
		lo, hi := columnBounds(v)
		lp.SetColBnds(col, bndsType(lo, hi), finite(lo), finite(hi))
	}
	for _, t := range m.obj.Terms {
		lp.SetObjCoef(int(t.Var)+1, t.Coef)
	}

	if n := len(m.cons); n > 0 {
		lp.AddRows(n)
	}
	for i, c := range m.cons {
		row := i + 1
		lp.SetRowName(row, glpkName(c.Name))
		switch c.Sense {
		case LessEq:
			lp.SetRowBnds(row, glpk.BndsType(glpk.UP), 0, c.RHS)
		case GreaterEq:
			lp.SetRowBnds(row, glpk.BndsType(glpk.LO), c.RHS, 0)
		default:
			lp.SetRowBnds(row, glpk.BndsType(glpk.FX), c.RHS, c.RHS)
		}
		if len(c.Expr.Terms) == 0 {
			continue
		}
		// GLPK ignores index 0 of both slices.
		ind := make([]int32, 1, len(c.Expr.Terms)+1)
		val := make([]float64, 1, len(c.Expr.Terms)+1)
		for _, t := range c.Expr.Terms {
			ind = append(ind, int32(t.Var)+1)
			val = append(val, t.Coef)
		}
		lp.SetMatRow(row, ind, val)
	}

	smcp := glpk.NewSmcp()
	smcp.SetMsgLev(glpk.MsgLev(glpk.MSG_OFF))
	if err := lp.Simplex(smcp); err != nil {
		return Solution{}, fmt.Errorf("%w: glpk simplex: %v", ErrNumerical, err)
	}
	switch lp.Status() {
	case glpk.OPT:
	case glpk.NOFEAS:
		return Solution{Status: StatusInfeasible}, nil
	case glpk.UNBND:
		return Solution{Status: StatusUnbounded}, nil
	default:
		return Solution{}, fmt.Errorf("%w: glpk simplex ended with status %v", ErrNumerical, lp.Status())
	}

	iocp := glpk.NewIocp()
	iocp.SetMsgLev(glpk.MsgLev(glpk.MSG_OFF))
	if err := lp.Intopt(iocp); err != nil {
		return Solution{}, fmt.Errorf("%w: glpk intopt: %v", ErrNumerical, err)
	}
	switch lp.MipStatus() {
	case glpk.OPT:
	case glpk.NOFEAS:
		return Solution{Status: StatusInfeasible}, nil
	default:
		return Solution{}, fmt.Errorf("%w: glpk intopt ended with status %v", ErrNumerical, lp.MipStatus())
	}

	x := make([]float64, len(m.vars))
	for j, v := range m.vars {
		x[j] = lp.MipColVal(j + 1)
		if v.Kind == Binary {
			x[j] = math.Round(x[j])
		}
	}
	return Solution{Status: StatusOptimal, Objective: m.obj.Value(x), Values: x}, nil
}

// columnBounds returns the bounds of v, rounded inward for binaries.
func columnBounds(v Variable) (lo, hi float64) {
	lo, hi = v.Lower, v.Upper
	if v.Kind == Binary {
		lo = math.Max(0, math.Ceil(lo-intTol))
		hi = math.Min(1, math.Floor(hi+intTol))
	}
	return lo, hi
}

func bndsType(lo, hi float64) glpk.BndsType {
	switch {
	case math.IsInf(lo, -1) && math.IsInf(hi, 1):
		return glpk.BndsType(glpk.FR)
	case math.IsInf(hi, 1):
		return glpk.BndsType(glpk.LO)
	case math.IsInf(lo, -1):
		return glpk.BndsType(glpk.UP)
	case lo == hi:
		return glpk.BndsType(glpk.FX)
	default:
		return glpk.BndsType(glpk.DB)
	}
}

func finite(v float64) float64 {
	if math.IsInf(v, 0) {
		return 0
	}
	return v
}

// glpkName truncates names to the 255 bytes GLPK accepts.
func glpkName(s string) string {
	if len(s) > 255 {
		return s[:255]
	}
	return s
}
