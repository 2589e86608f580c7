// Package api exposes the batch pipeline over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	chicors "github.com/go-chi/cors"

	"voice-features-go/internal/errs"
	"voice-features-go/internal/journal"
	"voice-features-go/internal/logger"
	"voice-features-go/internal/types"
)

// Runner executes one batch; *pipeline.Orchestrator satisfies it.
type Runner interface {
	Run(ctx context.Context, req types.BatchRequest) (*types.BatchResponse, error)
}

// BatchStore reads journaled batches; *journal.Journal satisfies it.
type BatchStore interface {
	Get(ctx context.Context, id string) (*types.BatchResponse, error)
}

type Deps struct {
	// Runner is nil when the service could not be configured; SetupErr then
	// says why and every batch request fails with it.
	Runner   Runner
	SetupErr error
	Batches  BatchStore

	CORSOrigins []string
	Log         *logger.Logger
}

type server struct {
	Deps
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Discard()
	}
	if len(d.CORSOrigins) == 0 {
		d.CORSOrigins = []string{"*"}
	}
	s := &server{Deps: d}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chicors.Handler(chicors.Options{
		AllowedOrigins: d.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Api-Key"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.health)
	r.Post("/v1/extract-features", s.extractFeatures)
	r.Get("/v1/batches/{id}", s.getBatch)
	return r
}

func (s *server) health(w http.ResponseWriter, r *http.Request) {
	s.Log.WithRequest(r).Debug("health check")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *server) extractFeatures(w http.ResponseWriter, r *http.Request) {
	reqLog := s.Log.WithRequest(r).WithField("handler", "extract-features")
	if s.Runner == nil {
		err := s.SetupErr
		if err == nil {
			err = errs.New(errs.Config, "service not configured")
		}
		reqLog.WithError(err).Error("batch rejected")
		writeError(w, err)
		return
	}

	req, err := parseJSON[types.BatchRequest](r)
	if err != nil {
		reqLog.WithError(err).Warn("bad request body")
		writeError(w, err)
		return
	}
	reqLog = reqLog.WithField("template_id", req.TemplateID).WithField("trees_requested", len(req.ParentRecordIDs))
	reqLog.Info("batch request received")

	start := time.Now()
	resp, err := s.Runner.Run(r.Context(), req)
	if err != nil {
		reqLog.WithError(err).WithField("duration_ms", time.Since(start).Milliseconds()).Warn("batch failed before processing")
		writeError(w, err)
		return
	}
	reqLog.WithField("batch_id", resp.BatchID).WithField("duration_ms", time.Since(start).Milliseconds()).Info("batch finished")
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) getBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if s.Batches == nil {
		writeError(w, errs.New(errs.NotFound, "batch journal disabled"))
		return
	}
	resp, err := s.Batches.Get(r.Context(), id)
	if errors.Is(err, journal.ErrNotFound) {
		writeError(w, errs.Newf(errs.NotFound, "batch %s not found", id))
		return
	}
	if err != nil {
		s.Log.WithRequest(r).WithError(err).Error("journal read failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)
	writeJSON(w, errs.HTTPStatus(code), types.ErrorResponse{
		Success: false,
		Error:   err.Error(),
		Code:    code.String(),
	})
}
