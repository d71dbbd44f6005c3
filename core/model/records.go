package model

import (
	"fmt"
	"strings"
)

// LeaveKind describes why a worker is away.
type LeaveKind int

const (
	LeaveVacation LeaveKind = iota
	LeaveCongress
	// LeaveSkip blocks a single day and overrides mandatory shifts.
	LeaveSkip
)

func (k LeaveKind) String() string {
	switch k {
	case LeaveVacation:
		return "vacation"
	case LeaveCongress:
		return "congress"
	case LeaveSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Spread reports how many days on each side of the leave date are blocked.
func (k LeaveKind) Spread() int {
	if k == LeaveSkip {
		return 0
	}
	return 1
}

// MarshalText implements encoding.TextMarshaler.
func (k LeaveKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *LeaveKind) UnmarshalText(b []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(b))) {
	case "vacation":
		*k = LeaveVacation
	case "congress":
		*k = LeaveCongress
	case "skip":
		*k = LeaveSkip
	default:
		return fmt.Errorf("unknown leave kind %q", string(b))
	}
	return nil
}

// PreferenceKind is either a wish to work or a wish not to work a day.
type PreferenceKind int

const (
	Prefer PreferenceKind = iota
	PreferNot
)

func (k PreferenceKind) String() string {
	if k == PreferNot {
		return "prefer_not"
	}
	return "prefer"
}

// MarshalText implements encoding.TextMarshaler.
func (k PreferenceKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *PreferenceKind) UnmarshalText(b []byte) error {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(string(b))), " ", "_") {
	case "prefer":
		*k = Prefer
	case "prefer_not", "prefernot":
		*k = PreferNot
	default:
		return fmt.Errorf("unknown preference %q", string(b))
	}
	return nil
}

// Leave is a resolved leave or skip record.
type Leave struct {
	WorkerID string    `json:"worker_id" yaml:"worker_id"`
	Date     Date      `json:"date" yaml:"date"`
	Kind     LeaveKind `json:"kind" yaml:"kind"`
}

// Preference is a resolved liked/disliked day.
type Preference struct {
	WorkerID string         `json:"worker_id" yaml:"worker_id"`
	Date     Date           `json:"date" yaml:"date"`
	Kind     PreferenceKind `json:"kind" yaml:"kind"`
}

// MandatoryShift pins a worker to a day.
type MandatoryShift struct {
	WorkerID string `json:"worker_id" yaml:"worker_id"`
	Date     Date   `json:"date" yaml:"date"`
}

// Assignment is an accepted shift.
type Assignment struct {
	WorkerID string `json:"worker_id" yaml:"worker_id"`
	Date     Date   `json:"date" yaml:"date"`
}

// Roster is the fully resolved input of a generation run.
type Roster struct {
	Workers     []Worker         `json:"workers" yaml:"workers"`
	Leaves      []Leave          `json:"leaves" yaml:"leaves"`
	Preferences []Preference     `json:"preferences" yaml:"preferences"`
	Mandatory   []MandatoryShift `json:"mandatory" yaml:"mandatory"`
	// History holds shifts accepted before the generated range.
	History []Assignment `json:"history,omitempty" yaml:"history,omitempty"`
}

// Validate checks workers and that every record references a known worker.
func (r Roster) Validate() error {
	if len(r.Workers) == 0 {
		return fmt.Errorf("roster has no workers")
	}
	known := make(map[string]bool, len(r.Workers))
	for _, w := range r.Workers {
		if err := w.Validate(); err != nil {
			return err
		}
		if known[w.ID] {
			return fmt.Errorf("duplicate worker id %s", w.ID)
		}
		known[w.ID] = true
	}
	check := func(kind, id string) error {
		if !known[id] {
			return fmt.Errorf("%s references unknown worker %q", kind, id)
		}
		return nil
	}
	for _, l := range r.Leaves {
		if err := check("leave", l.WorkerID); err != nil {
			return err
		}
	}
	for _, p := range r.Preferences {
		if err := check("preference", p.WorkerID); err != nil {
			return err
		}
	}
	for _, m := range r.Mandatory {
		if err := check("mandatory shift", m.WorkerID); err != nil {
			return err
		}
	}
	return nil
}
