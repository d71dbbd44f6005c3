package roster

import "fmt"

// Weights are the penalty coefficients of the soft terms.
type Weights struct {
	DislikedDay           float64 `json:"disliked_day" yaml:"disliked_day"`
	MissedLikedDay        float64 `json:"missed_liked_day" yaml:"missed_liked_day"`
	ExcessWeeklyShifts    float64 `json:"excess_weekly_shifts" yaml:"excess_weekly_shifts"`
	RepeatedWeekday       float64 `json:"repeated_weekday" yaml:"repeated_weekday"`
	RepeatedPairing       float64 `json:"repeated_pairing" yaml:"repeated_pairing"`
	MonthlyBalance        float64 `json:"monthly_balance" yaml:"monthly_balance"`
	ShiftLimitViolation   float64 `json:"shift_limit_violation" yaml:"shift_limit_violation"`
	WeekendLimitViolation float64 `json:"weekend_limit_violation" yaml:"weekend_limit_violation"`
}

// DefaultWeights returns the stock penalty weights.
func DefaultWeights() Weights {
	return Weights{
		DislikedDay:           10,
		MissedLikedDay:        8,
		ExcessWeeklyShifts:    5,
		RepeatedWeekday:       30,
		RepeatedPairing:       35,
		MonthlyBalance:        60,
		ShiftLimitViolation:   500,
		WeekendLimitViolation: 400,
	}
}

func (w Weights) isZero() bool { return w == Weights{} }

func (w Weights) validate() error {
	named := []struct {
		name string
		v    float64
	}{
		{"disliked_day", w.DislikedDay},
		{"missed_liked_day", w.MissedLikedDay},
		{"excess_weekly_shifts", w.ExcessWeeklyShifts},
		{"repeated_weekday", w.RepeatedWeekday},
		{"repeated_pairing", w.RepeatedPairing},
		{"monthly_balance", w.MonthlyBalance},
		{"shift_limit_violation", w.ShiftLimitViolation},
		{"weekend_limit_violation", w.WeekendLimitViolation},
	}
	for _, n := range named {
		if n.v < 0 {
			return &ConfigError{Field: "weights." + n.name, Reason: fmt.Sprintf("must not be negative, got %g", n.v)}
		}
	}
	return nil
}

// Config drives model construction and the solve strategy.
type Config struct {
	// StaffMin and StaffMax bound the number of workers on duty each day.
	StaffMin int `json:"staff_min" yaml:"staff_min"`
	StaffMax int `json:"staff_max" yaml:"staff_max"`
	// SeparationCandidates are the minimum rest distances tried per phase,
	// largest first.
	SeparationCandidates []int `json:"separation_candidates" yaml:"separation_candidates"`
	// BalanceAlpha scales the correction applied from the running fairness
	// imbalance.
	BalanceAlpha float64 `json:"balance_alpha" yaml:"balance_alpha"`
	// WeightedSum minimises base and fairness penalties together instead of
	// lexicographically.
	WeightedSum bool `json:"weighted_sum" yaml:"weighted_sum"`
	// LexTolerance is the relative slack allowed on the base objective
	// during the fairness re-solve.
	LexTolerance float64 `json:"lex_tolerance" yaml:"lex_tolerance"`
	// WeeklyBaseline is the number of shifts per week above which the
	// weekly overload penalty triggers.
	WeeklyBaseline int `json:"weekly_baseline" yaml:"weekly_baseline"`
	// DisableOverlapCap drops the bound tying overlap-window shifts to the
	// next month's limits.
	DisableOverlapCap bool `json:"disable_overlap_cap" yaml:"disable_overlap_cap"`
	// Solver selects the MILP backend: SolverGLPK or SolverBranchAndBound.
	Solver string `json:"solver" yaml:"solver"`
	// SolveTimeoutSeconds bounds the wall clock of every single solver call;
	// zero disables it. GLPK calls return with a timeout error at the
	// deadline; branch and bound checks it between nodes.
	SolveTimeoutSeconds int `json:"solve_timeout_seconds" yaml:"solve_timeout_seconds"`
	// MaxNodes bounds the branch and bound search; zero means unlimited.
	// GLPK ignores it.
	MaxNodes int     `json:"max_nodes" yaml:"max_nodes"`
	Weights  Weights `json:"weights" yaml:"weights"`
}

// Solver backends.
const (
	SolverGLPK           = "glpk"
	SolverBranchAndBound = "branch_and_bound"
)

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	c := Config{BalanceAlpha: 1.0, LexTolerance: 1e-6, WeeklyBaseline: 2}
	c.SetDefaults()
	return c
}

// SetDefaults fills fields whose zero value cannot be meant. BalanceAlpha,
// LexTolerance and WeeklyBaseline keep an explicit zero; DefaultConfig
// supplies their defaults.
func (c *Config) SetDefaults() {
	if c.StaffMin == 0 && c.StaffMax == 0 {
		c.StaffMin, c.StaffMax = 2, 2
	}
	if len(c.SeparationCandidates) == 0 {
		c.SeparationCandidates = []int{3, 2, 1}
	}
	if c.Solver == "" {
		c.Solver = SolverGLPK
	}
	if c.Weights.isZero() {
		c.Weights = DefaultWeights()
	}
}

// Validate rejects configurations no month could be built from.
func (c Config) Validate() error {
	if c.StaffMin < 0 || c.StaffMax < 1 {
		return &ConfigError{Field: "staff_min/staff_max", Reason: fmt.Sprintf("invalid band [%d,%d]", c.StaffMin, c.StaffMax)}
	}
	if c.StaffMin > c.StaffMax {
		return &ConfigError{Field: "staff_min/staff_max", Reason: fmt.Sprintf("min %d exceeds max %d", c.StaffMin, c.StaffMax)}
	}
	if len(c.SeparationCandidates) == 0 {
		return &ConfigError{Field: "separation_candidates", Reason: "at least one candidate is required"}
	}
	for i, m := range c.SeparationCandidates {
		if m < 0 {
			return &ConfigError{Field: "separation_candidates", Reason: fmt.Sprintf("negative distance %d", m)}
		}
		if i > 0 && m >= c.SeparationCandidates[i-1] {
			return &ConfigError{Field: "separation_candidates", Reason: "must be strictly descending"}
		}
	}
	if c.BalanceAlpha < 0 {
		return &ConfigError{Field: "balance_alpha", Reason: "must not be negative"}
	}
	if c.LexTolerance < 0 {
		return &ConfigError{Field: "lex_tolerance", Reason: "must not be negative"}
	}
	if c.WeeklyBaseline < 0 {
		return &ConfigError{Field: "weekly_baseline", Reason: "must not be negative"}
	}
	switch c.Solver {
	case SolverGLPK, SolverBranchAndBound:
	default:
		return &ConfigError{Field: "solver", Reason: fmt.Sprintf("unknown solver %q", c.Solver)}
	}
	if c.SolveTimeoutSeconds < 0 || c.MaxNodes < 0 {
		return &ConfigError{Field: "solve_timeout_seconds/max_nodes", Reason: "must not be negative"}
	}
	return c.Weights.validate()
}

// MaxSeparation is the widest candidate distance, which is how far back
// earlier shifts can constrain a month.
func (c Config) MaxSeparation() int {
	if len(c.SeparationCandidates) == 0 {
		return 0
	}
	return c.SeparationCandidates[0]
}
