// Package milp models small mixed 0-1 linear programs and hands them to a
// Solver. GLPK is the production solver. BranchAndBound is a pure Go
// depth-first search whose LP relaxations are solved with the simplex
// implementation of gonum's optimize/convex/lp after bound propagation; it
// suits small models and tests that must not depend on libglpk.
//
// Models are plain values: a Model can be cloned, extended with extra
// constraints and handed to a Solver again, which is how lexicographic
// objectives are expressed by callers.
package milp
