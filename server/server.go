package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/kbukum/xform/config"
	"github.com/kbukum/xform/logger"
	"github.com/kbukum/xform/observability"
	"github.com/kbukum/xform/resilience"
	"github.com/kbukum/xform/security"
)

const routeHealth = "/healthz"

// Server serves an Engine over HTTP.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	log        *logger.Logger
	tls        security.TLSConfig
	listener   net.Listener
}

// Option configures a Server.
type Option func(*options)

type options struct {
	log      *logger.Logger
	metrics  *observability.EngineMetrics
	service  string
	rowLimit int
}

// WithLogger sets the server logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithMetrics records request metrics on m.
func WithMetrics(m *observability.EngineMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithService names the service in health responses.
func WithService(name string) Option {
	return func(o *options) { o.service = name }
}

// WithRowLimit caps the rows a query may return; 0 means no cap.
func WithRowLimit(n int) Option {
	return func(o *options) { o.rowLimit = n }
}

// New creates a server for engine. Routes are registered immediately.
func New(cfg config.ServerConfig, engine Engine, opts ...Option) *Server {
	o := options{service: "xform"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Get(logger.ComponentServer)
	}

	if gin.Mode() != gin.TestMode {
		if zerolog.GlobalLevel() <= zerolog.DebugLevel {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}
	router := gin.New()
	router.Use(Recovery(o.log), RequestID(), Observe(o.log, o.metrics))

	maxConcurrent := cfg.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = config.DefaultMaxConcurrent
	}
	runs := resilience.NewBulkhead(resilience.BulkheadConfig{
		Name:          "query runner",
		MaxConcurrent: maxConcurrent,
		MaxWait:       cfg.MaxWait,
		OnReject: func(name string, err error) {
			o.log.Warn("run rejected", logger.Fields(logger.FieldComponent, name, logger.FieldError, err.Error()))
		},
	})

	h := &handlers{engine: engine, runs: runs, service: o.service, rowLimit: o.rowLimit}
	router.GET(routeHealth, h.health)
	v1 := router.Group("/v1")
	v1.POST("/query", h.query)
	v1.POST("/query/stream", h.stream)
	v1.GET("/verbs", h.verbs)
	v1.GET("/types", h.types)
	v1.GET("/tables", h.tables)
	v1.PUT("/tables/:name", h.storeTable)

	// Plain-text listeners also accept HTTP/2 with prior knowledge.
	h2s := &http2.Server{MaxConcurrentStreams: 250, IdleTimeout: 120 * time.Second}

	return &Server{
		httpServer: &http.Server{
			Addr:         cfg.Addr,
			Handler:      h2c.NewHandler(router, h2s),
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		router: router,
		log:    o.log,
		tls:    cfg.TLS,
	}
}

// Routes lists the registered routes as "METHOD path".
func (s *Server) Routes() []string {
	routes := s.router.Routes()
	out := make([]string, len(routes))
	for i, r := range routes {
		out[i] = r.Method + " " + r.Path
	}
	return out
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start binds the address and serves in the background, over TLS when a
// certificate is configured. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	tlsConfig, err := s.tls.Build()
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("server failed to bind %s: %w", s.httpServer.Addr, err)
	}
	if tlsConfig != nil {
		listener = tls.NewListener(listener, tlsConfig)
	}
	s.listener = listener
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("server stopped")
		}
	}()
	s.log.Info("http server started", logger.Fields("addr", listener.Addr().String(), "tls", tlsConfig != nil))
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.httpServer.Addr
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	s.log.Info("http server stopped")
	return nil
}
