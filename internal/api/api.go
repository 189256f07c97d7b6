// Package api implements the HTTP API server for codeq.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sprite-ai/codeq/internal/assist"
	"github.com/sprite-ai/codeq/internal/config"
	"github.com/sprite-ai/codeq/internal/metrics"
	"github.com/sprite-ai/codeq/internal/pipeline"
)

const (
	requestIDHeader = "X-Request-ID"
	maxBodyBytes    = 4 << 20
)

// Server is the codeq HTTP API server.
type Server struct {
	addr      string
	mux       *http.ServeMux
	server    *http.Server
	analyzer  *pipeline.Analyzer
	assistant *assist.Assistant
	recorder  *metrics.Recorder
	logger    *zap.Logger
	validate  *validator.Validate
	origins   map[string]bool
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRecorder serves r at /metrics.
func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithAssistant sets the assistant behind the explain, suggest, autofix
// and chat endpoints.
func WithAssistant(a *assist.Assistant) Option {
	return func(s *Server) {
		if a != nil {
			s.assistant = a
		}
	}
}

// WithServerConfig applies timeouts and the CORS allow-list.
func WithServerConfig(cfg config.ServerConfig) Option {
	return func(s *Server) {
		if cfg.ReadTimeout > 0 {
			s.server.ReadTimeout = cfg.ReadTimeout
		}
		if cfg.WriteTimeout > 0 {
			s.server.WriteTimeout = cfg.WriteTimeout
		}
		if cfg.IdleTimeout > 0 {
			s.server.IdleTimeout = cfg.IdleTimeout
		}
		for _, o := range cfg.AllowedOrigins {
			s.origins[o] = true
		}
	}
}

// New creates a new API server that analyzes with analyzer. A nil analyzer
// runs against the stub collaborator.
func New(addr string, analyzer *pipeline.Analyzer, opts ...Option) *Server {
	if analyzer == nil {
		analyzer = pipeline.New(nil)
	}
	s := &Server{
		addr:     addr,
		mux:      http.NewServeMux(),
		analyzer: analyzer,
		logger:   zap.NewNop(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		origins:  make(map[string]bool),
	}
	s.server = &http.Server{
		Addr:         addr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.assistant == nil {
		s.assistant = assist.New(analyzer.Guard(), 0)
	}
	s.registerRoutes()
	s.server.Handler = s.Handler()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /api/compare", s.handleCompare)
	s.mux.HandleFunc("POST /api/scan", s.handleScan)
	s.mux.HandleFunc("POST /api/explain", s.handleExplain)
	s.mux.HandleFunc("POST /api/suggest", s.handleSuggest)
	s.mux.HandleFunc("POST /api/autofix", s.handleAutofix)
	s.mux.HandleFunc("POST /api/ask", s.handleAsk)
	s.mux.HandleFunc("POST /api/chat", s.handleChat)
	s.mux.HandleFunc("GET /api/ws", s.handleWebSocket)
	s.mux.Handle("GET /metrics", s.recorder.Handler())
}

// ListenAndServe starts the HTTP server and shuts it down gracefully when
// ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("codeq API server listening", zap.String("addr", s.addr))
		errCh <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("shutting down API server")
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down: %w", err)
		}
		return nil
	}
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.withRequestID(s.withCORS(s.mux))
}

// --- Middleware ---

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter { return r.ResponseWriter }

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		s.logger.Info("request",
			zap.String("request_id", id),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.origins[origin] {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, "+requestIDHeader)
			h.Add("Vary", "Origin")
		}
		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.origins[origin]
}

// writeJSON writes a JSON response.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		s.logger.Warn("json encode error", zap.Error(err))
	}
}

// writeError writes a JSON error response.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes a JSON request body into v and validates it.
func (s *Server) readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return fmt.Errorf("empty request body")
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return err
	}
	return s.validate.Struct(v)
}
