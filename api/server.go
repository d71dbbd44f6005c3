// Package api serves the read-only archive API next to the Prometheus
// metrics.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/kilianp07/rota/api/runs"
	"github.com/kilianp07/rota/infra/logger"
	"github.com/kilianp07/rota/infra/metrics"
)

const shutdownTimeout = 5 * time.Second

// NewMux mounts the archive routes under /api/ and the metrics on /metrics.
func NewMux(src runs.Source) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/api/", runs.NewHandler(src))
	mux.Handle("/metrics", metrics.Handler(nil))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Serve runs h on addr until ctx is canceled.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	log := logger.New("api")
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Errorf("api shutdown: %v", err)
		}
	}()
	log.Infof("serving api on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
