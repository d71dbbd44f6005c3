package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalidLimits is returned when a min/max pair cannot be satisfied.
var ErrInvalidLimits = errors.New("invalid limits")

// Category groups workers by seniority for the supervision rules.
type Category int

const (
	Senior Category = iota
	Junior
)

// ParseCategory accepts the canonical names and the legacy roster labels
// ("resident", "attending").
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "senior", "attending", "":
		return Senior, nil
	case "junior", "resident":
		return Junior, nil
	default:
		return Senior, fmt.Errorf("unknown category %q", s)
	}
}

func (c Category) String() string {
	switch c {
	case Junior:
		return "junior"
	case Senior:
		return "senior"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// Limits bounds a monthly count.
type Limits struct {
	Min int `json:"min" yaml:"min"`
	Max int `json:"max" yaml:"max"`
}

// Validate rejects negative bounds and min > max.
func (l Limits) Validate() error {
	if l.Min < 0 || l.Max < 0 {
		return fmt.Errorf("%w: negative bound %d..%d", ErrInvalidLimits, l.Min, l.Max)
	}
	if l.Min > l.Max {
		return fmt.Errorf("%w: min %d > max %d", ErrInvalidLimits, l.Min, l.Max)
	}
	return nil
}

// Midpoint returns the centre of the band.
func (l Limits) Midpoint() float64 { return 0.5 * float64(l.Min+l.Max) }

// MonthLimits overrides a worker's limits for one month.
type MonthLimits struct {
	Month    YearMonth `json:"month" yaml:"month"`
	Shifts   Limits    `json:"shifts" yaml:"shifts"`
	Weekends Limits    `json:"weekends" yaml:"weekends"`
}

// Worker is a schedulable person.
type Worker struct {
	ID           string        `json:"id" yaml:"id"`
	Name         string        `json:"name" yaml:"name"`
	Shifts       Limits        `json:"shifts" yaml:"shifts"`
	Weekends     Limits        `json:"weekends" yaml:"weekends"`
	Category     Category      `json:"category" yaml:"category"`
	CanSupervise bool          `json:"can_supervise" yaml:"can_supervise"`
	Overrides    []MonthLimits `json:"overrides,omitempty" yaml:"overrides,omitempty"`
	// RestBefore lists weekdays whose previous day must stay free.
	RestBefore []time.Weekday `json:"rest_before,omitempty" yaml:"rest_before,omitempty"`
}

// LimitsFor returns the shift and weekend limits applying to ym.
func (w Worker) LimitsFor(ym YearMonth) (shifts, weekends Limits) {
	for _, o := range w.Overrides {
		if o.Month == ym {
			return o.Shifts, o.Weekends
		}
	}
	return w.Shifts, w.Weekends
}

// Validate checks identity and every limit pair.
func (w Worker) Validate() error {
	if w.ID == "" {
		return errors.New("worker id is required")
	}
	if err := w.Shifts.Validate(); err != nil {
		return fmt.Errorf("worker %s shifts: %w", w.ID, err)
	}
	if err := w.Weekends.Validate(); err != nil {
		return fmt.Errorf("worker %s weekends: %w", w.ID, err)
	}
	for _, o := range w.Overrides {
		if err := o.Shifts.Validate(); err != nil {
			return fmt.Errorf("worker %s shifts %s: %w", w.ID, o.Month, err)
		}
		if err := o.Weekends.Validate(); err != nil {
			return fmt.Errorf("worker %s weekends %s: %w", w.ID, o.Month, err)
		}
	}
	return nil
}
