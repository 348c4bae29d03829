package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/config"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/health"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/metrics"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/models"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/prompt"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/security"
	"github.com/coedaniel/bedrock-mcp-backend-multi-herramienta/internal/storage"
)

const idleTimeout = 120 * time.Second

// Chatter handles one chat request end to end.
type Chatter interface {
	Handle(ctx context.Context, req models.ChatRequest) (*models.ChatResponse, error)
}

// Catalog resolves and lists models.
type Catalog interface {
	Resolve(modelID string) (models.Model, error)
	List() []models.Model
}

// FileStore is the artifact bucket as seen by the file endpoints.
type FileStore interface {
	Put(ctx context.Context, obj storage.Object) (*storage.Stored, error)
	List(ctx context.Context, prefix string, limit int) ([]storage.ObjectInfo, error)
	Delete(ctx context.Context, keyOrURL string) (string, error)
}

// Deps are the components the HTTP surface delegates to.
type Deps struct {
	Chat    Chatter
	Models  Catalog
	Guard   *security.Guard
	Limiter *security.Limiter
	Files   FileStore
	Prompts *prompt.Store
	Health  *health.Checker
	Version string
}

type Server struct {
	cfg     config.Config
	deps    Deps
	app     *echo.Echo
	address string
	logger  zerolog.Logger
	now     func() time.Time
}

// New constructs an HTTP server wired with routing and middleware.
func New(cfg config.Config, deps Deps, logger zerolog.Logger) (*Server, error) {
	switch {
	case deps.Chat == nil:
		return nil, errors.New("chat handler must not be nil")
	case deps.Models == nil:
		return nil, errors.New("model catalog must not be nil")
	case deps.Guard == nil:
		return nil, errors.New("security guard must not be nil")
	case deps.Limiter == nil:
		return nil, errors.New("rate limiter must not be nil")
	case deps.Files == nil:
		return nil, errors.New("file store must not be nil")
	case deps.Prompts == nil:
		return nil, errors.New("prompt store must not be nil")
	case deps.Health == nil:
		return nil, errors.New("health checker must not be nil")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger = logger.With().Str("component", "http").Logger()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler
	e.IPExtractor = echo.ExtractIPFromXFFHeader()

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			ev := logger.Info()
			if v.Error != nil {
				ev = logger.Warn().Err(v.Error)
			}
			ev.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Int64("latency_ms", v.Latency.Milliseconds()).
				Msg("request")
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Server.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	e.Use(requestMetrics)

	srv := &Server{
		cfg:     cfg,
		deps:    deps,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
		logger:  logger,
		now:     time.Now,
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the router for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	printStartupBanner(s.cfg.Server.Port)
	s.logger.Info().Str("addr", s.address).Msg("starting server")

	httpServer := &http.Server{
		Addr:         s.address,
		Handler:      s.app,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info().Msg("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	jsonLimit := middleware.BodyLimit(s.cfg.Server.BodyLimit)
	uploadLimit := middleware.BodyLimit(s.cfg.Server.UploadBodyLimit)

	s.app.POST("/chat", s.handleChat, s.rateLimit(), jsonLimit)

	s.app.GET("/health", s.handleHealth)
	s.app.GET("/health/dependencies", s.handleDependencies)

	s.app.GET("/system-prompt", s.handleGetPrompt)
	s.app.POST("/system-prompt", s.handleUpdatePrompt, jsonLimit)
	s.app.POST("/system-prompt/reset", s.handleResetPrompt)

	s.app.POST("/upload-file", s.handleUploadFile, uploadLimit)
	s.app.POST("/upload-json", s.handleUploadJSON, uploadLimit)
	s.app.GET("/list-files", s.handleListFiles)
	s.app.DELETE("/delete-file", s.handleDeleteFile)
	s.app.GET("/projects/:project/files", s.handleProjectFiles)

	s.app.GET("/models", s.handleModels)
	s.app.GET("/security-status", s.handleSecurityStatus)
	s.app.GET("/rate-limit-status/:ip", s.handleRateLimitStatus)
	s.app.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// rateLimit applies the per-client token bucket to the wrapped route.
func (s *Server) rateLimit() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: s.deps.Limiter,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return requestError{
				Status:  http.StatusForbidden,
				Message: "unable to identify client",
				Type:    "invalid_request_error",
			}
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			metrics.RateLimited.Inc()
			s.logger.Warn().Str("client_ip", identifier).Msg("rate limit exceeded")
			return requestError{
				Status:  http.StatusTooManyRequests,
				Message: fmt.Sprintf("rate limit exceeded: %d requests per %s", s.deps.Limiter.Limit(), s.cfg.Security.RateLimit.Window),
				Type:    "rate_limit_error",
			}
		},
	})
}

func requestMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			var reqErr requestError
			var he *echo.HTTPError
			switch {
			case errors.As(err, &reqErr):
				status = reqErr.Status
			case errors.As(err, &he):
				status = he.Code
			default:
				status = http.StatusInternalServerError
			}
		}

		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		metrics.RequestCount.WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).Inc()
		metrics.RequestDuration.WithLabelValues(c.Request().Method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

func printStartupBanner(port int) {
	host := "127.0.0.1"
	fmt.Println()
	fmt.Println("bedrock-gateway ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  POST /chat")
	fmt.Println("  GET  /health, /health/dependencies, /models, /metrics")
	fmt.Println("  GET  /system-prompt  POST /system-prompt[/reset]")
	fmt.Println("  POST /upload-file, /upload-json  GET /list-files  DELETE /delete-file")
	fmt.Printf("Example:\n  curl http://%s:%d/chat -H 'Content-Type: application/json' -d '{\"message\":\"hola\"}'\n\n", host, port)
}
