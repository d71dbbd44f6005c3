// Package runs exposes the run archive over HTTP:
//
//	GET /api/runs                  run summaries, most recent first
//	GET /api/runs/latest           the most recent run with months and shifts
//	GET /api/runs/{id}             one run with months and shifts
//	GET /api/runs/{id}/shifts      shifts as JSON, or CSV with format=csv
//	GET /api/pins                  pinned shifts
//
// The shifts endpoint accepts worker_id and month (YYYY-MM) filters.
package runs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/rota/core/model"
	"github.com/kilianp07/rota/infra/store"
	"github.com/kilianp07/rota/pkg/export"
)

// Source is the read side of the run archive.
type Source interface {
	Runs(ctx context.Context) ([]store.RunSummary, error)
	Latest(ctx context.Context) (store.RunSummary, error)
	Detail(ctx context.Context, id string) (store.RunDetail, error)
	Pinned(ctx context.Context) ([]model.MandatoryShift, error)
}

// NewHandler returns the archive API routes.
func NewHandler(src Source) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/runs", func(w http.ResponseWriter, r *http.Request) {
		runs, err := src.Runs(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if runs == nil {
			runs = []store.RunSummary{}
		}
		writeJSON(w, runs)
	})
	mux.HandleFunc("GET /api/runs/{id}", func(w http.ResponseWriter, r *http.Request) {
		d, err := detail(r, src)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, d)
	})
	mux.HandleFunc("GET /api/runs/{id}/shifts", func(w http.ResponseWriter, r *http.Request) {
		d, err := detail(r, src)
		if err != nil {
			writeError(w, err)
			return
		}
		q := r.URL.Query()
		f := filter{workerID: q.Get("worker_id")}
		if m := q.Get("month"); m != "" {
			ym, err := model.ParseYearMonth(m)
			if err != nil {
				http.Error(w, "invalid month", http.StatusBadRequest)
				return
			}
			f.month = &ym
		}
		shifts := f.apply(d.Shifts)
		switch q.Get("format") {
		case "", "json":
			writeJSON(w, shifts)
		case "csv":
			w.Header().Set("Content-Type", "text/csv")
			if err := export.WriteCSV(w, shifts); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
		default:
			http.Error(w, "unknown format", http.StatusBadRequest)
		}
	})
	mux.HandleFunc("GET /api/pins", func(w http.ResponseWriter, r *http.Request) {
		pins, err := src.Pinned(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		if pins == nil {
			pins = []model.MandatoryShift{}
		}
		writeJSON(w, pins)
	})
	return mux
}

// detail resolves the {id} path value; "latest" selects the most recent run.
func detail(r *http.Request, src Source) (store.RunDetail, error) {
	id := r.PathValue("id")
	if id == "latest" {
		latest, err := src.Latest(r.Context())
		if err != nil {
			return store.RunDetail{}, err
		}
		id = latest.ID
	}
	return src.Detail(r.Context(), id)
}

type filter struct {
	workerID string
	month    *model.YearMonth
}

func (f filter) apply(shifts []model.Assignment) []model.Assignment {
	out := make([]model.Assignment, 0, len(shifts))
	for _, a := range shifts {
		if f.workerID != "" && a.WorkerID != f.workerID {
			continue
		}
		if f.month != nil && !f.month.Contains(a.Date) {
			continue
		}
		out = append(out, a)
	}
	return out
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrRunNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
