// Package mockprovider emulates the people-data provider API for local runs
// and end-to-end tests. It serves lookups, enrichment and searches from an
// in-memory dataset and can replay scripted failures (throttling, server
// errors, malformed bodies) to exercise client retries.
package mockprovider

import (
	"context"
	"crypto/subtle"
	goerrors "errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/gaborage/go-enrich/logger"
)

const (
	// DefaultBasePath mirrors the provider's API root
	DefaultBasePath = "/api/v2"
	// APIKeyHeader carries the caller's key
	APIKeyHeader = "Api-Key"

	defaultServiceName = "mockprovider"
	adminPath          = "/_mock"
)

// Config configures the emulator. An empty APIKey disables the key check.
type Config struct {
	Host        string
	Port        int
	APIKey      string
	Latency     time.Duration
	BasePath    string
	ServiceName string
}

// Server is the provider emulator.
type Server struct {
	echo     *echo.Echo
	cfg      Config
	log      logger.Logger
	data     *dataset
	failures failureQueue
	requests atomic.Int64
}

// New builds the emulator. A nil profiles slice uses DefaultProfiles.
func New(cfg Config, profiles []Profile, log logger.Logger) *Server {
	if cfg.BasePath == "" {
		cfg.BasePath = DefaultBasePath
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaultServiceName
	}
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	if log == nil {
		log = logger.Nop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler

	s := &Server{
		echo: e,
		cfg:  cfg,
		log:  log,
		data: &dataset{profiles: profiles},
	}

	e.Use(otelecho.Middleware(cfg.ServiceName))
	e.Use(middleware.RequestID())
	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			log.Error().
				Err(err).
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Bytes("stack", stack).
				Msg("Panic recovered")
			return err
		},
	}))
	e.Use(requestLogger(log))

	e.GET("/health", s.health)

	api := e.Group(cfg.BasePath, s.countRequests, s.simulateLatency, s.injectFailures, s.requireAPIKey)
	api.GET("/person/lookup", s.lookup)
	api.GET("/profile-company/lookup", s.enrich)
	api.POST("/person/search", s.search)

	admin := e.Group(adminPath)
	admin.POST("/failures", s.enqueueFailures)
	admin.DELETE("/failures", s.resetFailures)
	admin.GET("/stats", s.stats)

	log.Debug().
		Str("base_path", cfg.BasePath).
		Int("profiles", len(profiles)).
		Msg("Mock provider routes configured")

	return s
}

// Handler exposes the emulator as an http.Handler, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Address is the configured listen address.
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// Start listens on the configured address. It blocks until Shutdown.
func (s *Server) Start() error {
	s.log.Info().
		Str("address", s.Address()).
		Str("base_path", s.cfg.BasePath).
		Bool("auth", s.cfg.APIKey != "").
		Msg("Starting mock provider...")

	srv := &http.Server{
		Addr:              s.Address(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.echo.StartServer(srv); err != nil && !goerrors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Enqueue schedules failures for the next provider requests, in order.
func (s *Server) Enqueue(fs ...Failure) {
	s.failures.push(fs...)
}

// ResetFailures drops pending failures and returns how many were dropped.
func (s *Server) ResetFailures() int {
	return s.failures.reset()
}

// Requests counts provider API requests received, including failed ones.
func (s *Server) Requests() int64 {
	return s.requests.Load()
}

func (s *Server) countRequests(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		s.requests.Add(1)
		return next(c)
	}
}

func (s *Server) simulateLatency(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.cfg.Latency <= 0 {
			return next(c)
		}
		timer := time.NewTimer(s.cfg.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
			return next(c)
		case <-c.Request().Context().Done():
			return c.Request().Context().Err()
		}
	}
}

func (s *Server) injectFailures(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		f, ok := s.failures.pop()
		if !ok {
			return next(c)
		}
		s.log.Debug().
			Int("status", f.Status).
			Bool("malformed", f.Malformed).
			Str("path", c.Request().URL.Path).
			Msg("Serving scripted failure")
		return f.write(c)
	}
}

func (s *Server) requireAPIKey(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.cfg.APIKey == "" {
			return next(c)
		}
		got := c.Request().Header.Get(APIKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.cfg.APIKey)) != 1 {
			return c.JSON(http.StatusUnauthorized, errorDocument(http.StatusUnauthorized))
		}
		return next(c)
	}
}

func (s *Server) health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) enqueueFailures(c echo.Context) error {
	var fs []Failure
	if err := c.Bind(&fs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "body must be a JSON array of failures")
	}
	s.Enqueue(fs...)
	return c.JSON(http.StatusAccepted, map[string]int{"pending": s.failures.len()})
}

func (s *Server) resetFailures(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int{"dropped": s.ResetFailures()})
}

func (s *Server) stats(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]int64{
		"requests":         s.Requests(),
		"pending_failures": int64(s.failures.len()),
	})
}

// errorHandler renders every error as a provider style {"detail": ...} document.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	msg := http.StatusText(status)
	var he *echo.HTTPError
	if goerrors.As(err, &he) {
		status = he.Code
		switch m := he.Message.(type) {
		case string:
			msg = m
		case error:
			msg = m.Error()
		default:
			msg = http.StatusText(status)
		}
	}
	_ = c.JSON(status, map[string]string{"detail": msg})
}

func requestLogger(log logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			log.Debug().
				Str("request_id", c.Response().Header().Get(echo.HeaderXRequestID)).
				Str("method", c.Request().Method).
				Str("path", c.Request().URL.Path).
				Int("status", c.Response().Status).
				Dur("latency", time.Since(start)).
				Msg("Request served")
			return nil
		}
	}
}
