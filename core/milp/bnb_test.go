package milp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func knapsack() (*Model, []Var) {
	m := NewModel("knapsack")
	a, b, c := m.Binary("a"), m.Binary("b"), m.Binary("c")
	var w Expr
	w.Add(a, 2)
	w.Add(b, 3)
	w.Add(c, 1)
	m.AddConstraint("capacity", w, LessEq, 5)
	var obj Expr
	obj.Add(a, -5)
	obj.Add(b, -4)
	obj.Add(c, -3)
	m.SetObjective(obj)
	return m, []Var{a, b, c}
}

func TestBranchAndBoundKnapsack(t *testing.T) {
	m, v := knapsack()
	sol, err := NewBranchAndBound(0).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -9, sol.Objective, 1e-9)
	assert.Equal(t, 1.0, sol.Value(v[0]))
	assert.Equal(t, 1.0, sol.Value(v[1]))
	assert.Equal(t, 0.0, sol.Value(v[2]))
	assert.NoError(t, m.Check(sol.Values, 1e-6))
}

func TestBranchAndBoundEquality(t *testing.T) {
	m := NewModel("eq")
	a, b, c := m.Binary("a"), m.Binary("b"), m.Binary("c")
	m.AddConstraint("pick-two", Sum(a, b, c), Equal, 2)
	var obj Expr
	obj.Add(a, 1)
	obj.Add(b, 2)
	obj.Add(c, 3)
	m.SetObjective(obj)

	sol, err := NewBranchAndBound(0).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 3, sol.Objective, 1e-9)
	assert.Equal(t, 0.0, sol.Value(c))
}

func TestBranchAndBoundContinuousDeviation(t *testing.T) {
	m := NewModel("deviation")
	a, b := m.Binary("a"), m.Binary("b")
	pos, neg := m.Continuous("pos", 0), m.Continuous("neg", 0)

	m.AddConstraint("cover", Sum(a, b), GreaterEq, 1)
	over := Sum(pos)
	over.Add(a, -1)
	over.Add(b, -1)
	m.AddConstraint("over", over, GreaterEq, -1.2)
	under := Sum(neg, a, b)
	m.AddConstraint("under", under, GreaterEq, 1.2)

	obj := Sum(pos, neg)
	obj.Add(a, 0.1)
	m.SetObjective(obj)

	sol, err := NewBranchAndBound(0).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, 0.2, sol.Objective, 1e-6)
	assert.Equal(t, 0.0, sol.Value(a))
	assert.Equal(t, 1.0, sol.Value(b))
	assert.InDelta(t, 0.2, sol.Value(neg), 1e-6)
}

func TestBranchAndBoundInfeasible(t *testing.T) {
	m := NewModel("infeasible")
	a, b := m.Binary("a"), m.Binary("b")
	m.AddConstraint("too-many", Sum(a, b), GreaterEq, 3)
	sol, err := NewBranchAndBound(0).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
	assert.Nil(t, sol.Values)
}

func TestFixConflictIsInfeasible(t *testing.T) {
	m := NewModel("conflict")
	a := m.Binary("a")
	m.Fix(a, 1)
	m.Fix(a, 0)
	sol, err := NewBranchAndBound(0).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusInfeasible, sol.Status)
}

func TestBranchAndBoundUnbounded(t *testing.T) {
	m := NewModel("unbounded")
	y := m.Continuous("y", 0)
	var obj Expr
	obj.Add(y, -1)
	m.SetObjective(obj)
	sol, err := NewBranchAndBound(0).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, StatusUnbounded, sol.Status)
}

func TestBranchAndBoundCancelled(t *testing.T) {
	m, _ := knapsack()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewBranchAndBound(0).Solve(ctx, m)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout got %v", err)
	}
}

func TestBranchAndBoundNodeLimit(t *testing.T) {
	m, _ := knapsack()
	_, err := NewBranchAndBound(1).Solve(context.Background(), m)
	if !errors.Is(err, ErrNodeLimit) {
		t.Fatalf("expected ErrNodeLimit got %v", err)
	}
}

func TestBranchAndBoundSimplexFailureStillExact(t *testing.T) {
	old := lpSolve
	lpSolve = func(_ []float64, _ *mat.Dense, _ []float64) ([]float64, error) {
		return nil, errors.New("fail")
	}
	defer func() { lpSolve = old }()

	m, _ := knapsack()
	sol, err := NewBranchAndBound(0).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, StatusOptimal, sol.Status)
	assert.InDelta(t, -9, sol.Objective, 1e-9)
}

func TestModelCloneIsIndependent(t *testing.T) {
	m, v := knapsack()
	c := m.Clone()
	c.AddConstraint("no-a", Sum(v[0]), LessEq, 0)
	c.SetObjective(Sum(v[2]))
	assert.Equal(t, 1, m.NumConstraints())
	assert.Equal(t, 2, c.NumConstraints())
	assert.Len(t, m.Objective().Terms, 3)
}

func TestModelCheck(t *testing.T) {
	m, _ := knapsack()
	assert.NoError(t, m.Check([]float64{1, 1, 0}, 1e-9))
	assert.Error(t, m.Check([]float64{1, 1, 1}, 1e-9))
	assert.Error(t, m.Check([]float64{0.5, 0, 0}, 1e-9))
	assert.Error(t, m.Check([]float64{1, 1}, 1e-9))
}

func TestExprCompactMergesTerms(t *testing.T) {
	m := NewModel("compact")
	a := m.Binary("a")
	e := Sum(a, a)
	e.AddConst(3)
	m.AddConstraint("merged", e, LessEq, 4)
	c := m.Constraints()[0]
	require.Len(t, c.Expr.Terms, 1)
	assert.Equal(t, 2.0, c.Expr.Terms[0].Coef)
	assert.Equal(t, 1.0, c.RHS)
}
