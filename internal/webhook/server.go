package webhook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattjoyce/pushgate/internal/allowlist"
	"github.com/mattjoyce/pushgate/internal/config"
	"github.com/mattjoyce/pushgate/internal/execlog"
	"github.com/mattjoyce/pushgate/internal/hook"
	"github.com/mattjoyce/pushgate/internal/metrics"
)

// Server is the webhook HTTP server.
type Server struct {
	listen     string
	secret     string
	branches   map[string]struct{}
	maxBody    int64
	allow      allowlist.Set
	hooks      []hook.Hook
	dispatcher Dispatcher
	execLog    *execlog.Log
	logger     *slog.Logger
	startedAt  time.Time
	server     *http.Server
}

// New creates a webhook server. The allowlist, hook set and branch set are
// immutable from here on.
func New(
	cfg *config.Config,
	allow allowlist.Set,
	hooks []hook.Hook,
	dispatcher Dispatcher,
	execLog *execlog.Log,
	logger *slog.Logger,
) *Server {
	return &Server{
		listen:     cfg.Service.Listen,
		secret:     cfg.GitHub.Secret,
		branches:   cfg.BranchSet(),
		maxBody:    cfg.Service.MaxBodySize,
		allow:      allow,
		hooks:      hooks,
		dispatcher: dispatcher,
		execLog:    execLog,
		logger:     logger,
		startedAt:  time.Now(),
	}
}

// Router returns the fully configured HTTP handler. Exposed so callers can
// serve it without binding a listener.
func (s *Server) Router() http.Handler {
	return s.setupRoutes()
}

// Start starts the HTTP server (blocking until ctx is cancelled).
func (s *Server) Start(ctx context.Context) error {
	router := s.setupRoutes()

	s.server = &http.Server{
		Addr:         s.listen,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting",
		"listen", s.listen,
		"hooks", len(s.hooks),
		"allowlist_ranges", s.allow.Len(),
		"branches", len(s.branches),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post("/", s.handleDelivery)
	r.Get("/logs", s.handleLogs)
	r.Get("/health", s.handleHealth)
	r.Get("/hooks", s.handleHooks)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

// loggingMiddleware logs HTTP requests (excludes payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleDelivery handles POST /, the full validation pipeline.
//
// The source address is taken from the TCP peer (r.RemoteAddr), not from
// forwarding headers: the allowlist check is only meaningful against an
// address the sender cannot choose.
func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	metrics.WebhooksReceived.Inc()

	addrPort, err := netip.ParseAddrPort(r.RemoteAddr)
	if err != nil {
		s.reject(w, r, RejectOrigin, "unparseable remote address")
		return
	}
	if !s.allow.Trusted(addrPort.Addr()) {
		s.reject(w, r, RejectOrigin, "address not in allowlist")
		return
	}

	limited := io.LimitReader(r.Body, s.maxBody+1)
	body, err := io.ReadAll(limited)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read request body")
		return
	}
	if int64(len(body)) > s.maxBody {
		s.respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}

	if reason, ok := verifySignature(body, r.Header.Get(SignatureHeader), s.secret); !ok {
		s.reject(w, r, reason, "signature verification failed")
		return
	}

	c := classify(r.Header.Get(EventHeader), body)
	switch c.Kind {
	case KindPing:
		s.respondJSON(w, http.StatusOK, pongResponse{Msg: "pong"})
		return
	case KindUnsupported:
		s.reject(w, r, RejectEventUnsupported, "unsupported event kind")
		return
	case KindMalformed:
		s.reject(w, r, RejectPayloadMalformed, "payload parsing failed")
		return
	}

	if !branchAllowed(c.Branch, s.branches) {
		s.reject(w, r, RejectBranchNotAllowed, "branch "+c.Branch+" not in configured set")
		return
	}

	metrics.PushesAccepted.Inc()
	s.logger.Info("push accepted", "branch", c.Branch,
		"request_id", middleware.GetReqID(r.Context()))

	// Hook execution must not hold up the request or other deliveries.
	// Dispatch outcome is reported via logs and /logs, never here.
	go s.dispatcher.Dispatch(context.WithoutCancel(r.Context()), c.Branch)

	w.WriteHeader(http.StatusAccepted)
}

// handleLogs returns the most recent dispatch's captured output.
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	rec := s.execLog.Snapshot()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "stdout:\n\n%s\n\nstderr:\n\n%s", rec.Stdout, rec.Stderr)
}

// handleHealth reports process health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]any{
		"status":           "healthy",
		"hooks_loaded":     len(s.hooks),
		"allowlist_ranges": s.allow.Len(),
		"uptime_seconds":   int64(time.Since(s.startedAt).Seconds()),
	})
}

// hookInfo is one entry in the /hooks listing.
type hookInfo struct {
	Name        string `json:"name"`
	Fingerprint string `json:"fingerprint"`
}

// handleHooks lists the hooks discovered at startup.
func (s *Server) handleHooks(w http.ResponseWriter, r *http.Request) {
	infos := make([]hookInfo, 0, len(s.hooks))
	for _, h := range s.hooks {
		infos = append(infos, hookInfo{Name: h.Name, Fingerprint: h.Fingerprint})
	}
	s.respondJSON(w, http.StatusOK, infos)
}

// reject counts and logs a rejection, then answers with a generic error.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, reason RejectReason, detail string) {
	metrics.WebhooksRejected.WithLabelValues(string(reason)).Inc()
	s.logger.Warn("webhook rejected",
		"reason", string(reason),
		"detail", detail,
		"remote_addr", r.RemoteAddr,
		"request_id", middleware.GetReqID(r.Context()),
	)

	status := reason.Status()
	if status == http.StatusBadRequest {
		s.respondError(w, status, "bad request")
		return
	}
	s.respondError(w, status, "forbidden")
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends a JSON error response.
func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, errorResponse{Error: message})
}
