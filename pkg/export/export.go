// Package export writes generated schedules for downstream tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/rota/core/model"
	"github.com/kilianp07/rota/core/roster"
)

// WriteJSON writes the run to w in JSON format.
func WriteJSON(w io.Writer, run *roster.Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(run)
}

// WriteCSV writes one row per accepted shift.
func WriteCSV(w io.Writer, shifts []model.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "weekday", "worker_id"}); err != nil {
		return err
	}
	for _, a := range shifts {
		rec := []string{
			a.Date.String(),
			strings.ToLower(a.Date.Weekday().String()),
			a.WorkerID,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WorkerSummary counts one worker's shifts in one month.
type WorkerSummary struct {
	Month    model.YearMonth
	WorkerID string
	Shifts   int
	Weekends int
}

// Summarize counts shifts and weekend shifts per month and worker, in month
// then worker order.
func Summarize(shifts []model.Assignment) []WorkerSummary {
	type key struct {
		ym model.YearMonth
		id string
	}
	counts := make(map[key]*WorkerSummary)
	for _, a := range shifts {
		k := key{a.Date.YearMonth(), a.WorkerID}
		s, ok := counts[k]
		if !ok {
			s = &WorkerSummary{Month: k.ym, WorkerID: k.id}
			counts[k] = s
		}
		s.Shifts++
		if a.Date.IsWeekend() {
			s.Weekends++
		}
	}
	out := make([]WorkerSummary, 0, len(counts))
	for _, s := range counts {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Month != out[j].Month {
			return out[i].Month.Before(out[j].Month)
		}
		return out[i].WorkerID < out[j].WorkerID
	})
	return out
}

// WriteSummaryCSV writes the per-month worker counts of shifts.
func WriteSummaryCSV(w io.Writer, shifts []model.Assignment) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"month", "worker_id", "shifts", "weekend_shifts"}); err != nil {
		return err
	}
	for _, s := range Summarize(shifts) {
		rec := []string{s.Month.String(), s.WorkerID, strconv.Itoa(s.Shifts), strconv.Itoa(s.Weekends)}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
