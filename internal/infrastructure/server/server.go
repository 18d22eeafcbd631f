package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	httpapi "github.com/GriffinCanCode/ncube-web/internal/api/http"
	"github.com/GriffinCanCode/ncube-web/internal/api/middleware"
	"github.com/GriffinCanCode/ncube-web/internal/api/ws"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/config"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/logging"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/ncube-web/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/ncube-web/internal/release"
	"github.com/GriffinCanCode/ncube-web/internal/session"
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router   *gin.Engine
	http     *http.Server
	sessions *session.Manager
	breaker  *resilience.Breaker
	logger   *logging.Logger
	config   *config.Config
	metrics  *monitoring.Metrics
}

// Option overrides a collaborator, mainly for tests.
type Option func(*options)

type options struct {
	upstream httpapi.Fetcher
	source   release.Source
	pages    httpapi.PageRenderer
	logger   *logging.Logger
}

// WithUpstream replaces the upstream release fetcher behind the proxy.
func WithUpstream(f httpapi.Fetcher) Option { return func(o *options) { o.upstream = f } }

// WithSessionSource replaces the bundle source sessions bootstrap from.
func WithSessionSource(s release.Source) Option { return func(o *options) { o.source = s } }

// WithPages replaces the page renderer.
func WithPages(p httpapi.PageRenderer) Option { return func(o *options) { o.pages = p } }

// WithLogger replaces the logger built from the config.
func WithLogger(l *logging.Logger) Option { return func(o *options) { o.logger = l } }

// NewServer creates a new server instance
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = logging.NewFromLevel(cfg.Logging.Level, cfg.Logging.Development)
	}
	logger.Info("Initializing ncube server",
		zap.String("port", cfg.Server.Port),
		zap.String("release_url", cfg.Release.URL),
		zap.String("release_route", cfg.Release.Route),
	)

	metrics := monitoring.NewMetrics()

	upstream := o.upstream
	if upstream == nil {
		upstream = release.NewFetcher(cfg.Release.URL,
			release.WithTimeout(cfg.Release.Timeout),
			release.WithLogger(logger.Named("upstream")))
	}
	breaker := resilience.New("release-upstream", resilience.Settings{
		Timeout: 30 * time.Second,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
	})

	source, err := sessionSource(cfg, o.source, logger)
	if err != nil {
		return nil, err
	}
	sessions := session.NewManager(session.Config{
		Source:        source,
		NoticeDelay:   cfg.Bootstrap.NoticeDelay,
		FrameInterval: cfg.Bootstrap.FrameInterval,
		ScriptTimeout: cfg.Bootstrap.ScriptTimeout,
		MemoryPages:   cfg.Bootstrap.MemoryPages,
		Logger:        logger.Named("session"),
		Metrics:       metrics,
	})

	pages := o.pages
	if pages == nil {
		pages = httpapi.Pages{}
	}

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	// The proxy route must match exactly.
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	// Add middleware
	router.Use(gin.CustomRecovery(httpapi.Recovery))
	router.Use(middleware.RequestID(logger.Named("http")))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	proxy := httpapi.NewReleaseProxy(upstream, breaker, metrics, logger.Named("proxy"))
	handlers := httpapi.NewHandlers(sessions, breaker)
	wsHandler := ws.NewHandler(sessions, metrics, logger.Named("ws"))

	// Register routes
	router.GET(cfg.Release.Route, httpapi.ExactURL(proxy.LatestRelease, pages.Render))
	router.GET("/health", handlers.Health)
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/stream", wsHandler.HandleConnection)
	router.NoRoute(pages.Render)

	logger.Info("Server initialized successfully")

	return &Server{
		router:   router,
		sessions: sessions,
		breaker:  breaker,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

func sessionSource(cfg *config.Config, override release.Source, logger *logging.Logger) (release.Source, error) {
	switch {
	case override != nil:
		return override, nil
	case cfg.Bootstrap.BundlePath != "":
		logger.Info("Sessions use a local bundle", zap.String("path", cfg.Bootstrap.BundlePath))
		return release.FileSource{Path: cfg.Bootstrap.BundlePath}, nil
	default:
		url := cfg.SourceURL()
		if url == "" {
			return nil, fmt.Errorf("no bundle source configured")
		}
		return release.NewFetcher(url,
			release.WithTimeout(cfg.Release.Timeout),
			release.WithLogger(logger.Named("fetch"))), nil
	}
}

// Handler returns the router.
func (s *Server) Handler() http.Handler { return s.router }

// Sessions returns the session manager.
func (s *Server) Sessions() *session.Manager { return s.sessions }

// Run starts the HTTP server and blocks until it stops.
func (s *Server) Run() error {
	addr := s.config.Server.Host + ":" + s.config.Server.Port
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("Starting HTTP server", zap.String("addr", addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close(ctx context.Context) error {
	s.logger.Info("Shutting down server...")

	var errs []error
	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop http server: %w", err))
		}
	}
	if err := s.sessions.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("failed to close sessions: %w", err))
	}

	// Sync logger before exit
	_ = s.logger.Sync()
	return errors.Join(errs...)
}
