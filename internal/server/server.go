// Package server provides the HTTP server of the relay.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vyrodovalexey/apirelay/internal/config"
	"github.com/vyrodovalexey/apirelay/internal/observability"
	"github.com/vyrodovalexey/apirelay/internal/server/middleware"
)

// ginModeOnce ensures gin.SetMode is only called once.
var ginModeOnce sync.Once

// Registrar mounts routes on the engine. *relay.Handler satisfies it.
type Registrar interface {
	Register(engine *gin.Engine)
}

// Server is the relay's HTTP server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	config     config.ServerConfig
	logger     observability.Logger
	mu         sync.RWMutex
	running    bool
	addr       net.Addr
}

// Option is a functional option for configuring the Server.
type Option func(*serverOptions)

type serverOptions struct {
	logger      observability.Logger
	metrics     *observability.Metrics
	metricsPath string
	cors        middleware.CORSConfig
	serviceName string
}

// WithLogger sets the logger.
func WithLogger(logger observability.Logger) Option {
	return func(o *serverOptions) {
		o.logger = logger
	}
}

// WithMetrics enables request metrics and exposes them on path.
func WithMetrics(m *observability.Metrics, path string) Option {
	return func(o *serverOptions) {
		o.metrics = m
		o.metricsPath = path
	}
}

// WithCORS sets the CORS configuration.
func WithCORS(cfg config.CORSConfig) Option {
	return func(o *serverOptions) {
		o.cors = middleware.CORSConfig{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: cfg.AllowMethods,
			AllowHeaders: cfg.AllowHeaders,
			MaxAge:       cfg.MaxAge,
		}
	}
}

// WithServiceName sets the instrumentation name used for server spans.
func WithServiceName(name string) Option {
	return func(o *serverOptions) {
		o.serviceName = name
	}
}

// New creates a server with the middleware chain installed and the routes
// of each registrar mounted.
func New(cfg config.ServerConfig, registrars []Registrar, opts ...Option) *Server {
	o := &serverOptions{
		logger: observability.NopLogger(),
		cors:   middleware.DefaultCORSConfig(),
	}
	for _, opt := range opts {
		opt(o)
	}

	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.HandleMethodNotAllowed = false

	skip := []string{}
	if o.metrics != nil && o.metricsPath != "" {
		skip = append(skip, o.metricsPath)
	}

	engine.Use(
		middleware.Recovery(o.logger),
		middleware.RequestID(),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: o.serviceName,
			SkipPaths:   skip,
		}),
		middleware.CORS(o.cors),
		middleware.Metrics(o.metrics),
		middleware.LoggingWithConfig(middleware.LoggingConfig{
			Logger:    o.logger,
			SkipPaths: skip,
		}),
		middleware.BodyLimit(cfg.MaxRequestBodySize),
	)

	for _, r := range registrars {
		r.Register(engine)
	}

	if o.metrics != nil && o.metricsPath != "" {
		engine.GET(o.metricsPath, gin.WrapH(o.metrics.Handler()))
	}

	return &Server{
		engine: engine,
		config: cfg,
		logger: o.logger,
	}
}

// Engine returns the underlying gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return net.JoinHostPort(s.config.Address, fmt.Sprintf("%d", s.config.Port))
}

// Addr returns the bound address once the server is listening.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.addr
}

// Start listens and serves until Stop is called. It returns nil after a
// graceful stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}

	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", s.Address())
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.Address(), err)
	}

	s.httpServer = &http.Server{
		Handler:           s.engine,
		ReadTimeout:       s.config.ReadTimeout.Duration(),
		ReadHeaderTimeout: s.config.ReadTimeout.Duration(),
		WriteTimeout:      s.config.WriteTimeout.Duration(),
		IdleTimeout:       s.config.IdleTimeout.Duration(),
	}
	s.addr = ln.Addr()
	s.running = true
	httpServer := s.httpServer
	s.mu.Unlock()

	s.logger.Info("starting HTTP server",
		observability.String("address", ln.Addr().String()),
		observability.Duration("read_timeout", s.config.ReadTimeout.Duration()),
		observability.Duration("write_timeout", s.config.WriteTimeout.Duration()),
	)

	err = httpServer.Serve(ln)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully, waiting for in-flight requests
// until ctx is done.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.RLock()
	httpServer := s.httpServer
	running := s.running
	s.mu.RUnlock()

	if !running || httpServer == nil {
		return nil
	}

	s.logger.Info("stopping HTTP server")

	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// IsRunning returns whether the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// ShutdownTimeout returns the configured graceful shutdown timeout.
func (s *Server) ShutdownTimeout() time.Duration {
	if d := s.config.ShutdownTimeout.Duration(); d > 0 {
		return d
	}
	return 15 * time.Second
}
