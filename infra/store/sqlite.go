// Package store persists generation runs, their accepted shifts and the
// shifts pinned by planners in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/rota/core/logger"
	"github.com/kilianp07/rota/core/model"
	"github.com/kilianp07/rota/core/roster"
)

//go:embed migrations.sql
var migrationsFS embed.FS

// ErrRunNotFound is returned when no run matches the requested id.
var ErrRunNotFound = errors.New("run not found")

// Store is a SQLite backed run archive.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// RunSummary describes a stored run.
type RunSummary struct {
	ID         string          `json:"id"`
	From       model.YearMonth `json:"from"`
	To         model.YearMonth `json:"to"`
	Started    time.Time       `json:"started"`
	Finished   time.Time       `json:"finished"`
	Solved     int             `json:"solved"`
	Infeasible int             `json:"infeasible"`
}

// MonthSummary describes the outcome of one stored month.
type MonthSummary struct {
	Month             model.YearMonth   `json:"month"`
	Status            string            `json:"status"`
	Phase             string            `json:"phase,omitempty"`
	Separation        int               `json:"separation"`
	BaseObjective     float64           `json:"base_objective"`
	FairnessObjective float64           `json:"fairness_objective"`
	Attempts          int               `json:"attempts"`
	Conflicts         []roster.Conflict `json:"conflicts,omitempty"`
}

// Open opens or creates the database at path and applies the schema.
func Open(path string, log logger.Logger) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	_, _ = db.Exec("PRAGMA foreign_keys = ON")
	_, _ = db.Exec("PRAGMA journal_mode = WAL")

	s := &Store{db: db, log: logger.OrNop(log)}
	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores a run with its months, accepted shifts and conflicts in a
// single transaction. Saving the same run twice replaces it.
func (s *Store) SaveRun(ctx context.Context, run *roster.Run) (err error) {
	state, err := json.Marshal(run.State)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"conflicts", "shifts", "months"} {
		if _, err = tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, run.ID); err != nil {
			return err
		}
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT INTO runs(id, from_month, to_month, started, finished, solved, infeasible, state)
		 VALUES(?,?,?,?,?,?,?,?)`,
		run.ID, run.From.String(), run.To.String(), formatTime(run.Started), formatTime(run.Finished),
		run.Solved(), len(run.Infeasible()), string(state),
	); err != nil {
		return err
	}
	for _, m := range run.Months {
		if err = saveMonth(ctx, tx, run.ID, m); err != nil {
			return fmt.Errorf("month %s: %w", m.Month, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return err
	}
	s.log.Infof("stored run %s (%d months)", run.ID, len(run.Months))
	return nil
}

func saveMonth(ctx context.Context, tx *sql.Tx, runID string, m roster.MonthResult) error {
	var phase sql.NullString
	var sep sql.NullInt64
	if m.Status == roster.MonthSolved {
		phase = sql.NullString{String: m.Phase.String(), Valid: true}
		sep = sql.NullInt64{Int64: int64(m.Separation), Valid: true}
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO months(run_id, month, status, phase, separation, base_objective, fairness_objective, attempts)
		 VALUES(?,?,?,?,?,?,?,?)`,
		runID, m.Month.String(), m.Status.String(), phase, sep, m.BaseObjective, m.FairnessObjective, len(m.Attempts),
	); err != nil {
		return err
	}
	for _, a := range m.Assignments() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO shifts(run_id, worker_id, day) VALUES(?,?,?)`,
			runID, a.WorkerID, a.Date.String(),
		); err != nil {
			return err
		}
	}
	if m.Diagnostics == nil {
		return nil
	}
	for _, c := range m.Diagnostics.Conflicts {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conflicts(run_id, month, worker_id, day) VALUES(?,?,?,?)`,
			runID, m.Month.String(), c.WorkerID, c.Date.String(),
		); err != nil {
			return err
		}
	}
	return nil
}

// Runs lists stored runs, most recent first.
func (s *Store) Runs(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_month, to_month, started, finished, solved, infeasible
		 FROM runs ORDER BY finished DESC, id`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []RunSummary
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Run returns the summary of one run.
func (s *Store) Run(ctx context.Context, id string) (RunSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, from_month, to_month, started, finished, solved, infeasible
		 FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// State returns the engine state stored with a run.
func (s *Store) State(ctx context.Context, id string) (roster.State, error) {
	var raw sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT state FROM runs WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return roster.State{}, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return roster.State{}, err
	}
	st := roster.NewState()
	if raw.Valid && raw.String != "" {
		if err := json.Unmarshal([]byte(raw.String), &st); err != nil {
			return roster.State{}, fmt.Errorf("decode state: %w", err)
		}
	}
	return st, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunSummary, error) {
	var r RunSummary
	var from, to, started, finished string
	if err := sc.Scan(&r.ID, &from, &to, &started, &finished, &r.Solved, &r.Infeasible); err != nil {
		return RunSummary{}, err
	}
	var err error
	if r.From, err = model.ParseYearMonth(from); err != nil {
		return RunSummary{}, err
	}
	if r.To, err = model.ParseYearMonth(to); err != nil {
		return RunSummary{}, err
	}
	if r.Started, err = time.Parse(timeLayout, started); err != nil {
		return RunSummary{}, err
	}
	if r.Finished, err = time.Parse(timeLayout, finished); err != nil {
		return RunSummary{}, err
	}
	return r, nil
}

// RunDetail is a stored run with its months and accepted shifts.
type RunDetail struct {
	Run    RunSummary         `json:"run"`
	Months []MonthSummary     `json:"months"`
	Shifts []model.Assignment `json:"shifts"`
}

// Latest returns the most recently finished run.
func (s *Store) Latest(ctx context.Context) (RunSummary, error) {
	runs, err := s.Runs(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	if len(runs) == 0 {
		return RunSummary{}, ErrRunNotFound
	}
	return runs[0], nil
}

// Detail loads a run with its months and shifts.
func (s *Store) Detail(ctx context.Context, id string) (RunDetail, error) {
	var d RunDetail
	var err error
	if d.Run, err = s.Run(ctx, id); err != nil {
		return d, err
	}
	if d.Months, err = s.Months(ctx, id); err != nil {
		return d, err
	}
	d.Shifts, err = s.Shifts(ctx, id)
	return d, err
}

// Months returns the month outcomes of a run in calendar order.
func (s *Store) Months(ctx context.Context, runID string) ([]MonthSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT month, status, phase, separation, base_objective, fairness_objective, attempts
		 FROM months WHERE run_id = ? ORDER BY month`, runID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []MonthSummary
	for rows.Next() {
		var m MonthSummary
		var month string
		var phase sql.NullString
		var sep sql.NullInt64
		var base, fair sql.NullFloat64
		if err := rows.Scan(&month, &m.Status, &phase, &sep, &base, &fair, &m.Attempts); err != nil {
			return nil, err
		}
		if m.Month, err = model.ParseYearMonth(month); err != nil {
			return nil, err
		}
		m.Phase, m.Separation = phase.String, int(sep.Int64)
		m.BaseObjective, m.FairnessObjective = base.Float64, fair.Float64
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		if out[i].Status != roster.MonthInfeasible.String() {
			continue
		}
		if out[i].Conflicts, err = s.conflicts(ctx, runID, out[i].Month); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *Store) conflicts(ctx context.Context, runID string, ym model.YearMonth) ([]roster.Conflict, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT worker_id, day FROM conflicts WHERE run_id = ? AND month = ? ORDER BY day, worker_id`,
		runID, ym.String())
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []roster.Conflict
	for rows.Next() {
		var c roster.Conflict
		var day string
		if err := rows.Scan(&c.WorkerID, &day); err != nil {
			return nil, err
		}
		if c.Date, err = model.ParseDate(day); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Shifts returns the accepted shifts of a run in date then worker order.
func (s *Store) Shifts(ctx context.Context, runID string) ([]model.Assignment, error) {
	return s.queryAssignments(ctx,
		`SELECT worker_id, day FROM shifts WHERE run_id = ? ORDER BY day, worker_id`, runID)
}

// History returns the shifts of the most recently finished run that covers
// any of the days in [before-days, before). They seed the separation
// distance of a run starting at before.
func (s *Store) History(ctx context.Context, before model.YearMonth, days int) ([]model.Assignment, error) {
	if days <= 0 {
		return nil, nil
	}
	end := before.First()
	start := end.AddDays(-days)
	var runID string
	err := s.db.QueryRowContext(ctx,
		`SELECT r.id FROM runs r
		 WHERE EXISTS (SELECT 1 FROM shifts s WHERE s.run_id = r.id AND s.day >= ? AND s.day < ?)
		 ORDER BY r.finished DESC LIMIT 1`,
		start.String(), end.String()).Scan(&runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s.queryAssignments(ctx,
		`SELECT worker_id, day FROM shifts WHERE run_id = ? AND day >= ? AND day < ? ORDER BY day, worker_id`,
		runID, start.String(), end.String())
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]model.Assignment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.Assignment
	for rows.Next() {
		var a model.Assignment
		var day string
		if err := rows.Scan(&a.WorkerID, &day); err != nil {
			return nil, err
		}
		if a.Date, err = model.ParseDate(day); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Pin records a mandatory shift that later runs must honor.
func (s *Store) Pin(ctx context.Context, m model.MandatoryShift) error {
	if m.WorkerID == "" || m.Date.IsZero() {
		return errors.New("pinned shift needs a worker and a date")
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pinned_shifts(worker_id, day, created) VALUES(?,?,?)
		 ON CONFLICT(worker_id, day) DO NOTHING`,
		m.WorkerID, m.Date.String(), formatTime(time.Now()))
	return err
}

// Unpin removes a pinned shift and reports whether it existed.
func (s *Store) Unpin(ctx context.Context, m model.MandatoryShift) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM pinned_shifts WHERE worker_id = ? AND day = ?`, m.WorkerID, m.Date.String())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

// Pinned returns every pinned shift in date then worker order.
func (s *Store) Pinned(ctx context.Context) ([]model.MandatoryShift, error) {
	as, err := s.queryAssignments(ctx, `SELECT worker_id, day FROM pinned_shifts ORDER BY day, worker_id`)
	if err != nil {
		return nil, err
	}
	out := make([]model.MandatoryShift, len(as))
	for i, a := range as {
		out[i] = model.MandatoryShift{WorkerID: a.WorkerID, Date: a.Date}
	}
	return out, nil
}

// timeLayout has a fixed width so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }
