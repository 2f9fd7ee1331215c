// Package proxy serves the two browser-facing endpoints that keep the
// provider key server-side: live place details and photo URI resolution.
package proxy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/locali/placesync/internal/logger"
	"github.com/locali/placesync/internal/observability"
	"github.com/locali/placesync/internal/places"
)

// Backend is the upstream surface the endpoints need. *places.HTTPClient
// implements it.
type Backend interface {
	PlaceDetails(ctx context.Context, placeRef, language, region string) (places.RawResponse, error)
	PhotoMedia(ctx context.Context, name string, maxWidthPx int) (places.RawResponse, error)
}

// Config holds request defaults and server timeouts.
type Config struct {
	Language        string
	Region          string
	MaxWidthPx      int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.Language == "" {
		c.Language = "it"
	}
	if c.Region == "" {
		c.Region = "IT"
	}
	if c.MaxWidthPx <= 0 {
		c.MaxWidthPx = 900
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 15 * time.Second
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = 45 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	return c
}

// Server is the proxy HTTP server.
type Server struct {
	echo      *echo.Echo
	cfg       Config
	backend   Backend // nil when no API key is configured
	metrics   *observability.Metrics
	log       logger.Logger
	startTime time.Time
}

// New builds the server. backend may be nil: the server still starts and
// answers every proxied request with a configuration error. metrics may be
// nil.
func New(cfg Config, backend Backend, m *observability.Metrics, log logger.Logger) *Server {
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	s := &Server{
		echo:      echo.New(),
		cfg:       cfg.withDefaults(),
		backend:   backend,
		metrics:   m,
		log:       log.Module("proxy"),
		startTime: time.Now(),
	}
	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.echo.Logger = newEchoLogger(s.log)
	s.echo.Server.ReadTimeout = s.cfg.ReadTimeout
	s.echo.Server.WriteTimeout = s.cfg.WriteTimeout

	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.echo.Use(echomw.Recover())
	s.echo.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	s.echo.Use(newRequestLogger(s.log))
	if s.metrics != nil {
		s.echo.Use(newMetricsMiddleware(s.metrics.HTTP))
	}
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthCheck)
	s.echo.Any(pathPlaceDetails, s.handlePlaceDetails)
	s.echo.Any(pathPlacePhotoURI, s.handlePlacePhotoURI)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics.Handler()))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

func (s *Server) healthCheck(c echo.Context) error {
	uptime := time.Since(s.startTime)
	return c.JSON(http.StatusOK, map[string]any{
		"status":         "healthy",
		"api_key":        s.backend != nil,
		"uptime_seconds": uptime.Seconds(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
	})
}

// Serve accepts connections on ln until ctx is cancelled, then shuts down
// gracefully within the configured timeout.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("Proxy listening", logger.String("address", ln.Addr().String()))
		s.echo.Listener = ln
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.log.Info("Shutting down proxy")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}
