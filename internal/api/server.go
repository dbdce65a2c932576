package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/newopenings-crawler/internal/catalog"
	"github.com/JakeFAU/newopenings-crawler/internal/config"
	"github.com/JakeFAU/newopenings-crawler/internal/crawler"
	"github.com/JakeFAU/newopenings-crawler/internal/metrics"
	queueMemory "github.com/JakeFAU/newopenings-crawler/internal/queue/memory"
	"github.com/JakeFAU/newopenings-crawler/internal/store"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 100
)

// Catalog is the read side the handlers need.
type Catalog interface {
	ListCurrent(ctx context.Context) catalog.Listing
	RecentRuns(ctx context.Context, limit int) ([]store.RunLog, error)
	LatestRun(ctx context.Context) (store.RunLog, error)
	Ping(ctx context.Context) error
}

// Submitter queues run requests.
type Submitter interface {
	Submit(ctx context.Context, trigger crawler.Trigger) (crawler.RunRequest, error)
}

// Server wires HTTP handlers to the catalog and the run dispatcher.
type Server struct {
	router    chi.Router
	catalog   Catalog
	submitter Submitter
	cfg       config.Config
	logger    *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(cat Catalog, submitter Submitter, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		catalog:   cat,
		submitter: submitter,
		cfg:       cfg,
		logger:    logger.Named("api"),
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))
	r.Use(recoverMiddleware(s.logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Get("/restaurants", s.listRestaurants)
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", s.submitRun)
			r.Get("/", s.listRuns)
			r.Get("/latest", s.latestRun)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.catalog.Ping(r.Context()); err != nil {
		s.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// listRestaurants always answers 200; store failures surface in the status field.
func (s *Server) listRestaurants(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.ListCurrent(r.Context()))
}

func (s *Server) submitRun(w http.ResponseWriter, r *http.Request) {
	queueCtx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	req, err := s.submitter.Submit(queueCtx, crawler.TriggerManual)
	if err != nil {
		status := http.StatusInternalServerError
		msg := "failed to queue run"
		switch {
		case errors.Is(err, queueMemory.ErrFull):
			status, msg = http.StatusTooManyRequests, "a run is already queued"
		case errors.Is(err, crawler.ErrQueueClosed):
			status, msg = http.StatusServiceUnavailable, "shutting down"
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusRequestTimeout
		}
		s.logger.Warn("submit run failed", zap.Error(err))
		writeError(w, status, msg)
		return
	}
	s.logger.Info("manual run queued", zap.String("run_id", req.ID))
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": req.ID, "status": "queued"})
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunLimit)
	}
	logs, err := s.catalog.RecentRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("list run logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	views := make([]runView, 0, len(logs))
	for _, l := range logs {
		views = append(views, toRunView(l))
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": views})
}

func (s *Server) latestRun(w http.ResponseWriter, r *http.Request) {
	l, err := s.catalog.LatestRun(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "no runs recorded")
		return
	}
	if err != nil {
		s.logger.Error("latest run log failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load latest run")
		return
	}
	writeJSON(w, http.StatusOK, toRunView(l))
}

type runView struct {
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	RecordsAdded int       `json:"records_added"`
	Pruned       int       `json:"pruned"`
	Source       string    `json:"source"`
	Status       string    `json:"status"`
	Message      string    `json:"message"`
}

func toRunView(l store.RunLog) runView {
	return runView{
		RunID:        l.RunID,
		Timestamp:    l.Timestamp,
		RecordsAdded: l.RecordsAdded,
		Pruned:       l.Pruned,
		Source:       l.Source,
		Status:       string(l.Status),
		Message:      l.Message,
	}
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			reqID, _ := r.Context().Value(requestIDKey{}).(string)
			logger.Debug("request completed",
				zap.String("request_id", reqID),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec), zap.String("path", r.URL.Path))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
