// CLAUDE:SUMMARY HTTP API over the tracker: profile JSON, events CSV, canvas PNG, with a semaphore capping concurrent browsers.
// Package api serves extractions over HTTP.
//
//	GET /health
//	GET /api/profiles/{username}             JSON result
//	GET /api/profiles/{username}/events.csv  date,time,xp
//	GET /api/profiles/{username}/canvas.png  history chart
//
// Every profile request runs a fresh extraction; a weighted semaphore
// bounds how many browsers are open at once.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/semaphore"

	"github.com/hazyhaar/xptrail/export"
	"github.com/hazyhaar/xptrail/shield"
	"github.com/hazyhaar/xptrail/tracker"
)

// Extractor runs one extraction. *tracker.Tracker implements it.
type Extractor interface {
	Extract(ctx context.Context, username string) (*tracker.Result, error)
}

// Server holds the HTTP surface.
type Server struct {
	ex     Extractor
	sem    *semaphore.Weighted
	logger *slog.Logger
}

// New creates a Server allowing maxBrowsers concurrent extractions
// (minimum 1).
func New(ex Extractor, maxBrowsers int, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxBrowsers < 1 {
		maxBrowsers = 1
	}
	return &Server{ex: ex, sem: semaphore.NewWeighted(int64(maxBrowsers)), logger: logger}
}

// Routes returns the router with the shield middleware stack applied.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	for _, mw := range shield.DefaultStack(s.logger) {
		r.Use(mw)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/profiles/{username}", func(r chi.Router) {
		r.Get("/", s.handleResult)
		r.Get("/events.csv", s.handleCSV)
		r.Get("/canvas.png", s.handleCanvas)
	})
	return r
}

type partialBody struct {
	Result *tracker.Result `json:"result"`
	Error  string          `json:"error"`
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	out, ok := s.extract(w, r)
	if !ok {
		return
	}
	if out.partial != nil {
		writeJSON(w, http.StatusPartialContent, partialBody{Result: out.res, Error: out.partial.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out.res)
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	out, ok := s.extract(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.FileBase(out.res.Header.DisplayName)+`_progress.csv"`)
	code := http.StatusOK
	if out.partial != nil {
		w.Header().Set("X-Partial-Error", out.partial.Error())
		code = http.StatusPartialContent
	}
	w.WriteHeader(code)
	if err := export.WriteCSV(w, out.res.Timeline); err != nil {
		shield.GetLogger(r.Context()).Warn("api: write csv", "error", err)
	}
}

func (s *Server) handleCanvas(w http.ResponseWriter, r *http.Request) {
	out, ok := s.extract(w, r)
	if !ok {
		return
	}
	res := out.res
	if res.Snapshot == nil {
		cause := res.SnapshotErr
		if out.partial != nil {
			cause = out.partial
		}
		if cause == nil {
			cause = errors.New("no snapshot")
		}
		writeError(w, http.StatusNotFound, cause)
		return
	}
	w.Header().Set("Content-Type", res.Snapshot.MIMEType)
	w.WriteHeader(http.StatusOK)
	w.Write(res.Snapshot.Bytes)
}

type outcome struct {
	res *tracker.Result
	// partial is nil or a *tracker.PartialError.
	partial error
}

// extract acquires a browser slot and runs the extraction. ok is false
// when an error response has already been written.
func (s *Server) extract(w http.ResponseWriter, r *http.Request) (outcome, bool) {
	ctx := r.Context()
	username := chi.URLParam(r, "username")

	if err := s.sem.Acquire(ctx, 1); err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return outcome{}, false
	}
	defer s.sem.Release(1)

	res, err := s.ex.Extract(ctx, username)
	if !tracker.IsFatal(err) {
		return outcome{res: res, partial: err}, true
	}

	code := statusFor(err)
	shield.GetLogger(ctx).Warn("api: extraction failed", "username", username, "status", code, "error", err)
	writeError(w, code, err)
	return outcome{}, false
}

func statusFor(err error) int {
	var (
		pnf *tracker.ProfileNotFoundError
		nav *tracker.NavigationError
	)
	switch {
	case errors.As(err, &pnf):
		return http.StatusNotFound
	case errors.As(err, &nav):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
