package milp

import (
	"context"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTimeout is returned when the context ends before the search does.
	ErrTimeout = errors.New("milp: solve interrupted")
	// ErrNodeLimit is returned when the node budget is exhausted.
	ErrNodeLimit = errors.New("milp: node limit reached")
	// ErrNumerical is returned when a relaxation cannot be solved reliably.
	ErrNumerical = errors.New("milp: numerical failure")
)

// Solver solves a Model to optimality.
type Solver interface {
	Solve(ctx context.Context, m *Model) (Solution, error)
}

// BranchAndBound is a depth-first branch and bound over binary variables.
// The search is deterministic: the same model always yields the same
// solution. The context is checked between nodes only, so a single
// relaxation can run past a deadline. Each node rebuilds its relaxation
// from scratch, which limits it to small models.
type BranchAndBound struct {
	// MaxNodes bounds the number of explored nodes; zero means no limit.
	MaxNodes int
}

// NewBranchAndBound returns a solver with the given node budget.
func NewBranchAndBound(maxNodes int) *BranchAndBound {
	return &BranchAndBound{MaxNodes: maxNodes}
}

type node struct {
	lo, hi []float64
}

func (n node) clone() node {
	return node{lo: append([]float64(nil), n.lo...), hi: append([]float64(nil), n.hi...)}
}

// Solve implements Solver.
func (b *BranchAndBound) Solve(ctx context.Context, m *Model) (Solution, error) {
	root := node{lo: make([]float64, len(m.vars)), hi: make([]float64, len(m.vars))}
	for j, v := range m.vars {
		root.lo[j], root.hi[j] = v.Lower, v.Upper
		if v.Kind == Binary {
			root.lo[j] = math.Max(0, math.Ceil(v.Lower-intTol))
			root.hi[j] = math.Min(1, math.Floor(v.Upper+intTol))
		}
	}

	var (
		best    []float64
		bestObj = math.Inf(1)
		nodes   int
		stack   = []node{root}
	)
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return Solution{Nodes: nodes}, fmt.Errorf("%w after %d nodes: %v", ErrTimeout, nodes, err)
		}
		if b.MaxNodes > 0 && nodes >= b.MaxNodes {
			return Solution{Nodes: nodes}, fmt.Errorf("%w (%d)", ErrNodeLimit, b.MaxNodes)
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nodes++

		if !propagate(m, nd.lo, nd.hi) {
			continue
		}
		rel, err := solveRelaxation(m, nd.lo, nd.hi)
		switch {
		case errors.Is(err, errNodeInfeasible):
			continue
		case errors.Is(err, errNodeUnbounded):
			return Solution{Status: StatusUnbounded, Nodes: nodes}, nil
		case err != nil:
			// Without a bound the node is still split so the search stays exact.
			j := firstOpenBinary(m, nd)
			if j < 0 {
				return Solution{Nodes: nodes}, err
			}
			stack = append(stack, split(nd, j, 0.5)...)
			continue
		}
		if rel.obj >= bestObj-pruneGap(bestObj) {
			continue
		}

		j := pickBranch(m, rel.x, nd)
		if j >= 0 {
			stack = append(stack, split(nd, j, rel.x[j])...)
			continue
		}

		x := roundIntegral(m, rel.x)
		if err := m.Check(x, feasTol); err != nil {
			if fixed := fixIntegral(m, nd, x); fixed != nil {
				stack = append(stack, *fixed)
			}
			continue
		}
		if obj := m.obj.Value(x); obj < bestObj {
			best, bestObj = x, obj
		}
	}
	if best == nil {
		return Solution{Status: StatusInfeasible, Nodes: nodes}, nil
	}
	return Solution{Status: StatusOptimal, Objective: bestObj, Values: best, Nodes: nodes}, nil
}

func pruneGap(best float64) float64 {
	if math.IsInf(best, 1) {
		return 0
	}
	return 1e-9 * math.Max(1, math.Abs(best))
}

// pickBranch returns the fractional binary with the highest priority, the
// most fractional one among equals, or -1 when x is integral.
func pickBranch(m *Model, x []float64, nd node) int {
	best := -1
	bestFrac := 0.0
	for j, v := range m.vars {
		if v.Kind != Binary || nd.hi[j]-nd.lo[j] < 0.5 {
			continue
		}
		f := x[j] - math.Floor(x[j])
		dist := math.Min(f, 1-f)
		if dist <= intTol {
			continue
		}
		if best < 0 || v.Priority > m.vars[best].Priority ||
			(v.Priority == m.vars[best].Priority && dist > bestFrac+1e-12) {
			best, bestFrac = j, dist
		}
	}
	return best
}

func firstOpenBinary(m *Model, nd node) int {
	best := -1
	for j, v := range m.vars {
		if v.Kind != Binary || nd.hi[j]-nd.lo[j] < 0.5 {
			continue
		}
		if best < 0 || v.Priority > m.vars[best].Priority {
			best = j
		}
	}
	return best
}

// split returns the two children of nd on variable j. The child closer to
// value is last so it is popped first.
func split(nd node, j int, value float64) []node {
	down, up := nd.clone(), nd.clone()
	down.hi[j] = math.Floor(value)
	up.lo[j] = math.Ceil(value)
	if value == math.Floor(value) {
		down.hi[j] = value
		up.lo[j] = value + 1
	}
	if value-math.Floor(value) < 0.5 {
		return []node{up, down}
	}
	return []node{down, up}
}

func roundIntegral(m *Model, x []float64) []float64 {
	out := append([]float64(nil), x...)
	for j, v := range m.vars {
		if v.Kind == Binary {
			out[j] = math.Round(out[j])
		}
	}
	return out
}

// fixIntegral returns a child of nd with every binary fixed at its value in
// x, or nil when nd already fixes all of them.
func fixIntegral(m *Model, nd node, x []float64) *node {
	open := false
	child := nd.clone()
	for j, v := range m.vars {
		if v.Kind != Binary {
			continue
		}
		if child.hi[j]-child.lo[j] >= 0.5 {
			open = true
		}
		child.lo[j], child.hi[j] = x[j], x[j]
	}
	if !open {
		return nil
	}
	return &child
}
