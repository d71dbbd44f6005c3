package milp

import (
	"fmt"
	"math"
	"sort"
)

// Kind distinguishes continuous from binary variables.
type Kind int

const (
	Continuous Kind = iota
	Binary
)

// Var is the index of a variable inside its Model.
type Var int

// Variable describes one column of the model.
type Variable struct {
	Name  string
	Kind  Kind
	Lower float64
	Upper float64
	// Priority orders branching; higher values are branched on first.
	Priority int
}

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression Σ coef·var + Constant.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Sum returns the expression with coefficient 1 on every variable.
func Sum(vars ...Var) Expr {
	e := Expr{Terms: make([]Term, 0, len(vars))}
	for _, v := range vars {
		e.Terms = append(e.Terms, Term{Var: v, Coef: 1})
	}
	return e
}

// Add appends coef·v.
func (e *Expr) Add(v Var, coef float64) {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
}

// AddConst adds c to the constant part.
func (e *Expr) AddConst(c float64) { e.Constant += c }

// AddExpr appends scale·o.
func (e *Expr) AddExpr(o Expr, scale float64) {
	for _, t := range o.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: scale * t.Coef})
	}
	e.Constant += scale * o.Constant
}

// Scaled returns scale·e as a new expression.
func (e Expr) Scaled(scale float64) Expr {
	var out Expr
	out.AddExpr(e, scale)
	return out
}

// Clone returns a deep copy.
func (e Expr) Clone() Expr {
	return Expr{Terms: append([]Term(nil), e.Terms...), Constant: e.Constant}
}

// Value evaluates the expression at x.
func (e Expr) Value(x []float64) float64 {
	v := e.Constant
	for _, t := range e.Terms {
		v += t.Coef * x[t.Var]
	}
	return v
}

// compact merges duplicate variables and drops zero coefficients. Terms are
// ordered by variable index so models built in the same order are identical.
func (e Expr) compact() Expr {
	if len(e.Terms) == 0 {
		return Expr{Constant: e.Constant}
	}
	acc := make(map[Var]float64, len(e.Terms))
	for _, t := range e.Terms {
		acc[t.Var] += t.Coef
	}
	out := Expr{Terms: make([]Term, 0, len(acc)), Constant: e.Constant}
	for v, c := range acc {
		if c != 0 {
			out.Terms = append(out.Terms, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out.Terms, func(i, j int) bool { return out.Terms[i].Var < out.Terms[j].Var })
	return out
}

// Sense is the relation of a constraint.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "="
	}
}

// Constraint is a linear row Σ coef·var (sense) RHS. Any constant of the
// expression it was built from has been folded into RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

func (c Constraint) satisfied(x []float64, tol float64) bool {
	lhs := c.Expr.Value(x)
	slack := tol * (1 + math.Abs(c.RHS))
	switch c.Sense {
	case LessEq:
		return lhs <= c.RHS+slack
	case GreaterEq:
		return lhs >= c.RHS-slack
	default:
		return math.Abs(lhs-c.RHS) <= slack
	}
}

// Model is a minimisation problem over bounded variables.
type Model struct {
	Name string
	vars []Variable
	cons []Constraint
	obj  Expr
}

// NewModel returns an empty model.
func NewModel(name string) *Model { return &Model{Name: name} }

// AddVar adds a variable with the given bounds.
func (m *Model) AddVar(name string, kind Kind, lower, upper float64) Var {
	m.vars = append(m.vars, Variable{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return Var(len(m.vars) - 1)
}

// Binary adds a 0-1 variable.
func (m *Model) Binary(name string) Var { return m.AddVar(name, Binary, 0, 1) }

// Continuous adds a variable bounded below by lower and unbounded above.
func (m *Model) Continuous(name string, lower float64) Var {
	return m.AddVar(name, Continuous, lower, math.Inf(1))
}

// SetPriority sets the branching priority of v.
func (m *Model) SetPriority(v Var, p int) { m.vars[v].Priority = p }

// Fix intersects the bounds of v with {value}. Fixing the same variable to two
// different values leaves it with an empty domain, which makes the model
// infeasible rather than silently keeping the last value.
func (m *Model) Fix(v Var, value float64) {
	vr := &m.vars[v]
	vr.Lower = math.Max(vr.Lower, value)
	vr.Upper = math.Min(vr.Upper, value)
}

// AddConstraint adds e (sense) rhs.
func (m *Model) AddConstraint(name string, e Expr, sense Sense, rhs float64) {
	e = e.compact()
	rhs -= e.Constant
	e.Constant = 0
	m.cons = append(m.cons, Constraint{Name: name, Expr: e, Sense: sense, RHS: rhs})
}

// SetObjective replaces the minimisation objective.
func (m *Model) SetObjective(e Expr) { m.obj = e.compact() }

// Objective returns the current objective.
func (m *Model) Objective() Expr { return m.obj }

func (m *Model) NumVars() int        { return len(m.vars) }
func (m *Model) NumConstraints() int { return len(m.cons) }

// Variable returns the definition of v.
func (m *Model) Variable(v Var) Variable { return m.vars[v] }

// Constraints returns the rows of the model. The slice must not be modified.
func (m *Model) Constraints() []Constraint { return m.cons }

// Clone returns an independent copy that can be extended without affecting m.
func (m *Model) Clone() *Model {
	c := &Model{
		Name: m.Name,
		vars: append([]Variable(nil), m.vars...),
		cons: make([]Constraint, len(m.cons)),
		obj:  m.obj.Clone(),
	}
	for i, con := range m.cons {
		con.Expr = con.Expr.Clone()
		c.cons[i] = con
	}
	return c
}

// Check verifies that x satisfies bounds, integrality and every constraint
// within tol.
func (m *Model) Check(x []float64, tol float64) error {
	if len(x) != len(m.vars) {
		return fmt.Errorf("solution has %d values for %d variables", len(x), len(m.vars))
	}
	for i, v := range m.vars {
		if x[i] < v.Lower-tol || x[i] > v.Upper+tol {
			return fmt.Errorf("variable %s=%g outside [%g,%g]", v.Name, x[i], v.Lower, v.Upper)
		}
		if v.Kind == Binary && math.Abs(x[i]-math.Round(x[i])) > tol {
			return fmt.Errorf("variable %s=%g is not integral", v.Name, x[i])
		}
	}
	for _, c := range m.cons {
		if !c.satisfied(x, tol) {
			return fmt.Errorf("constraint %s violated: %g %s %g", c.Name, c.Expr.Value(x), c.Sense, c.RHS)
		}
	}
	return nil
}

// Status is the outcome of a solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	default:
		return "unknown"
	}
}

// Solution is the result of a solve. Values is only set when Status is
// StatusOptimal.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64
	Nodes     int
}

// Value returns the value of v.
func (s Solution) Value(v Var) float64 { return s.Values[v] }

// Eval evaluates e at the solution.
func (s Solution) Eval(e Expr) float64 { return e.Value(s.Values) }
