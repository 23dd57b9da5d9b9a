// Package api serves the HTTP control surface of the engine.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	logAdapter "github.com/Heesho/donut-miner-miniapp-sub000/internal/adapters/log"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/app"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/domain"
	"github.com/Heesho/donut-miner-miniapp-sub000/internal/ports"
)

const (
	shutdownTimeout   = 10 * time.Second
	readHeaderTimeout = 10 * time.Second
	writeTimeout      = 30 * time.Second
)

// Engine is the part of the engine the API drives.
type Engine interface {
	Execute(calls []domain.Call) error
	Reset()
	Snapshot() app.Snapshot
}

// Server wraps the chi router and its dependencies.
type Server struct {
	router  *chi.Mux
	engine  Engine
	history ports.RunHistory
	logger  ports.Logger
	addr    string
	metrics *httpMetrics
}

// Options configures optional Server dependencies.
type Options struct {
	// History backs GET /v1/runs. Without it the endpoint answers 501.
	History ports.RunHistory

	// Registry receives HTTP metrics and is served on /metrics. Without it
	// neither is available.
	Registry *prometheus.Registry

	Logger ports.Logger
}

// NewServer creates and configures the HTTP server.
func NewServer(addr string, engine Engine, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = logAdapter.Nop{}
	}
	srv := &Server{
		router:  chi.NewRouter(),
		engine:  engine,
		history: opts.History,
		logger:  logger,
		addr:    addr,
	}
	if opts.Registry != nil {
		srv.metrics = newHTTPMetrics(opts.Registry)
	}

	srv.router.Use(middleware.RequestID)
	srv.router.Use(middleware.Recoverer)
	srv.router.Use(srv.loggingMiddleware)
	if srv.metrics != nil {
		srv.router.Use(srv.metrics.middleware)
	}
	srv.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	srv.routes(opts.Registry)
	return srv
}

func (s *Server) routes(reg *prometheus.Registry) {
	s.router.Get("/healthz", s.handleHealthz)
	if reg != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	}

	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/execute", s.handleExecute)
		r.Get("/state", s.handleState)
		r.Post("/reset", s.handleReset)
		r.Get("/runs", s.handleListRuns)
	})
}

// Router returns the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", ports.String("addr", s.addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}

// loggingMiddleware logs each request.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.logger.Debug("request",
			ports.String("method", r.Method),
			ports.String("path", r.URL.Path),
			ports.Int("status", ww.Status()),
			ports.Duration("duration", time.Since(start)),
			ports.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
