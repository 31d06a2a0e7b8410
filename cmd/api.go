package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/shortlist-cli/internal/health"
	"github.com/sells-group/shortlist-cli/internal/model"
	"github.com/sells-group/shortlist-cli/internal/pipeline"
	"github.com/sells-group/shortlist-cli/internal/search"
	"github.com/sells-group/shortlist-cli/internal/store"
)

const historyLimit = 5

// shortlistRunner abstracts the pipeline for handler tests.
type shortlistRunner interface {
	Run(ctx context.Context, need string, reqs []model.Requirement) (*model.ShortlistRun, error)
}

// healthChecker abstracts the dependency prober for handler tests.
type healthChecker interface {
	Check(ctx context.Context) model.HealthReport
}

type apiServer struct {
	store   store.Store
	runner  shortlistRunner
	checker healthChecker
}

func newAPIServer(st store.Store, runner shortlistRunner, checker healthChecker) *apiServer {
	return &apiServer{store: st, runner: runner, checker: checker}
}

func (s *apiServer) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Post("/create-shortlist", s.handleCreateShortlist)
	r.Get("/shortlist-history", s.handleHistory)
	r.Get("/health", s.handleHealth)
	return r
}

type createShortlistRequest struct {
	Need         string              `json:"need"`
	Requirements []model.Requirement `json:"requirements"`
}

func (s *apiServer) handleCreateShortlist(w http.ResponseWriter, r *http.Request) {
	var req createShortlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Need == "" {
		writeError(w, http.StatusBadRequest, "need is required")
		return
	}
	if len(req.Requirements) == 0 {
		writeError(w, http.StatusBadRequest, "at least one requirement is required")
		return
	}

	run, err := s.runner.Run(r.Context(), req.Need, req.Requirements)
	if err != nil {
		zap.L().Error("shortlist run failed", zap.String("need", req.Need), zap.Error(err))
		switch {
		case eris.Is(err, search.ErrQuotaExceeded):
			writeError(w, http.StatusTooManyRequests, "Search quota exceeded. Please try again later.")
		case eris.Is(err, pipeline.ErrNoResults):
			writeError(w, http.StatusNotFound, "No vendors found for this search")
		case eris.Is(err, search.ErrNotConfigured):
			writeError(w, http.StatusInternalServerError, "Search provider is not configured")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to create shortlist")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"shortlist":      run,
		"processingTime": run.ProcessingMs,
	})
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRecentCompleted(r.Context(), historyLimit)
	if err != nil {
		zap.L().Error("history lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to load shortlist history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"shortlists": runs,
		"count":      len(runs),
	})
}

func (s *apiServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.checker.Check(r.Context())
	status := http.StatusOK
	if report.Status == model.OverallUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		zap.L().Warn("write response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
	})
}

var _ healthChecker = (*health.Checker)(nil)
