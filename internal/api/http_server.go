package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"offlinesync/internal/config"
	"offlinesync/internal/export"
	"offlinesync/internal/metrics"
	"offlinesync/internal/models"

	"github.com/rs/zerolog"
)

// Syncer is the part of the offline manager exposed over HTTP.
type Syncer interface {
	GetStatus(ctx context.Context) (models.SyncStatus, error)
	GetQueue(ctx context.Context) ([]models.QueueItem, error)
	RemoveFromQueue(ctx context.Context, id string) (bool, error)
	ClearQueue(ctx context.Context) error
	DeadLetters(ctx context.Context) ([]models.QueueItem, error)
	ProcessPendingQueue(ctx context.Context) (models.SyncResult, error)
	InvalidateCache(ctx context.Context, pattern string) (int, error)
}

// HTTPServer exposes the operator API.
type HTTPServer struct {
	cfg    config.APIConfig
	syncer Syncer
	server *http.Server
	auth   *HTTPAuth
	logger *zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, syncer Syncer, logger *zerolog.Logger) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	srv := &HTTPServer{cfg: cfg, syncer: syncer, logger: logger}
	srv.auth = NewHTTPAuth(cfg)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/status", srv.handleStatus)
	mux.HandleFunc("GET /api/v1/queue", srv.handleQueue)
	mux.HandleFunc("DELETE /api/v1/queue", srv.handleClearQueue)
	mux.HandleFunc("GET /api/v1/queue/dead-letter", srv.handleDeadLetters)
	mux.HandleFunc("GET /api/v1/queue/export", srv.handleExport)
	mux.HandleFunc("DELETE /api/v1/queue/{id}", srv.handleRemoveItem)
	mux.HandleFunc("POST /api/v1/sync", srv.handleSync)
	mux.HandleFunc("DELETE /api/v1/cache", srv.handleInvalidateCache)

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           loggingMiddleware(logger, srv.auth.Wrap(mux)),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      time.Minute,
	}
	return srv
}

// Handler returns the fully wrapped handler.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.syncer.GetStatus(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *HTTPServer) handleQueue(w http.ResponseWriter, r *http.Request) {
	items, err := s.syncer.GetQueue(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *HTTPServer) handleClearQueue(w http.ResponseWriter, r *http.Request) {
	if err := s.syncer.ClearQueue(r.Context()); err != nil {
		s.internalError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.PathValue("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "id is required")
		return
	}
	removed, err := s.syncer.RemoveFromQueue(r.Context(), id)
	if err != nil {
		s.internalError(w, err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "queue item not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *HTTPServer) handleDeadLetters(w http.ResponseWriter, r *http.Request) {
	items, err := s.syncer.DeadLetters(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	pending, err := s.syncer.GetQueue(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	dead, err := s.syncer.DeadLetters(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteQueueWorkbook(&buf, pending, dead); err != nil {
		s.internalError(w, err)
		return
	}

	name := fmt.Sprintf("queue_%s.xlsx", time.Now().Format("2006-01-02_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleSync(w http.ResponseWriter, r *http.Request) {
	res, err := s.syncer.ProcessPendingQueue(r.Context())
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *HTTPServer) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	pattern := strings.TrimSpace(r.URL.Query().Get("pattern"))
	n, err := s.syncer.InvalidateCache(r.Context(), pattern)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": n})
}

func (s *HTTPServer) internalError(w http.ResponseWriter, err error) {
	s.logger.Error().Err(err).Msg("request failed")
	writeError(w, http.StatusInternalServerError, "internal error")
}

// HTTPAuth provides API-key auth and per-key rate limiting for HTTP endpoints.
type HTTPAuth struct {
	guard *guard
}

func NewHTTPAuth(cfg config.APIConfig) *HTTPAuth {
	return &HTTPAuth{guard: newGuard(cfg)}
}

func (a *HTTPAuth) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := strings.TrimSpace(r.Header.Get(a.guard.header))
		caller := apiKey
		if caller == "" {
			caller = remoteHost(r)
		}

		err := a.guard.check(apiKey, caller, requiredPermissionHTTP(r))
		switch {
		case err == nil:
			next.ServeHTTP(w, r)
		case errors.Is(err, errForbidden):
			writeError(w, http.StatusForbidden, err.Error())
		case errors.Is(err, errThrottled):
			writeError(w, http.StatusTooManyRequests, err.Error())
		default:
			writeError(w, http.StatusUnauthorized, err.Error())
		}
	})
}

func requiredPermissionHTTP(r *http.Request) string {
	path := r.URL.Path
	switch {
	case path == "/api/v1/status":
		return permReadStatus
	case path == "/api/v1/sync":
		return permWriteSync
	case path == "/api/v1/cache":
		return permWriteCache
	case strings.HasPrefix(path, "/api/v1/queue"):
		if r.Method == http.MethodGet {
			return permReadQueue
		}
		return permWriteQueue
	}
	return ""
}

func remoteHost(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return clientKeyUnknown
}

func loggingMiddleware(logger *zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		endpoint := r.Pattern
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metrics.IncHTTP(endpoint)

		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("dur", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
