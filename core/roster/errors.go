package roster

import (
	"errors"
	"fmt"

	"github.com/kilianp07/rota/core/milp"
	"github.com/kilianp07/rota/core/model"
)

var (
	// ErrInfeasibleMonth marks a month for which no phase and separation
	// distance produced a schedule.
	ErrInfeasibleMonth = errors.New("infeasible month")
	// ErrSolver marks a failed solver call. It aborts the run.
	ErrSolver = errors.New("solver failure")
	// ErrSolverTimeout marks a solver call that exceeded its budget.
	ErrSolverTimeout = errors.New("solver timeout")
	// ErrConfiguration marks invalid weights, limits or roster data.
	ErrConfiguration = errors.New("invalid configuration")
)

// InfeasibleError reports an unresolved month and the contradictions found
// in its inputs, if any.
type InfeasibleError struct {
	Month     model.YearMonth
	Conflicts []Conflict
}

func (e *InfeasibleError) Error() string {
	if len(e.Conflicts) == 0 {
		return fmt.Sprintf("%s: %v (no direct mandatory/unavailable conflict)", e.Month, ErrInfeasibleMonth)
	}
	return fmt.Sprintf("%s: %v (%d mandatory/unavailable conflicts)", e.Month, ErrInfeasibleMonth, len(e.Conflicts))
}

func (e *InfeasibleError) Unwrap() error { return ErrInfeasibleMonth }

// SolverError wraps a solver failure with the trial it happened in.
type SolverError struct {
	Month      model.YearMonth
	Phase      Phase
	Separation int
	Err        error
}

func (e *SolverError) Error() string {
	return fmt.Sprintf("solve %s (%s phase, separation %d): %v", e.Month, e.Phase, e.Separation, e.Err)
}

func (e *SolverError) Unwrap() []error {
	errs := []error{ErrSolver, e.Err}
	if errors.Is(e.Err, milp.ErrTimeout) || errors.Is(e.Err, milp.ErrNodeLimit) {
		errs = append(errs, ErrSolverTimeout)
	}
	return errs
}

// ConfigError reports an invalid setting.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrConfiguration, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrConfiguration }
