package overlay

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
)

// DefaultListen is the overlay server address when none is configured.
const DefaultListen = "127.0.0.1:8787"

// Server is the overlay HTTP server.
type Server struct {
	echo    *echo.Echo
	feed    *Feed
	log     logger.Logger
	slots   int
	metrics http.Handler
	started time.Time

	listener net.Listener
	errCh    chan error
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics exposes h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) { s.metrics = h }
}

// WithDisplaySlots sets the number of cards on /display.json.
func WithDisplaySlots(n int) Option {
	return func(s *Server) { s.slots = n }
}

// NewServer builds the server and its routes. Nothing listens until Start.
func NewServer(feed *Feed, opts ...Option) *Server {
	s := &Server{
		echo:    echo.New(),
		feed:    feed,
		log:     logger.Global().Module("overlay"),
		slots:   DefaultDisplaySlots,
		started: time.Now(),
		errCh:   make(chan error, 1),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.echo.HideBanner = true
	s.echo.HidePort = true
	s.configureMiddleware()
	s.initRoutes()
	return s
}

func (s *Server) configureMiddleware() {
	s.echo.Use(middleware.Recover())
	// Browser sources load overlays from file:// or another local origin.
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodHead},
	}))
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURIPath: true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("method", v.Method),
				logger.String("path", v.URIPath),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				s.log.Warn("overlay request failed", append(fields, logger.Error(v.Error))...)
				return nil
			}
			s.log.Trace("overlay request", fields...)
			return nil
		},
	}))
}

func (s *Server) initRoutes() {
	s.echo.GET("/leaderboard.json", s.handleLeaderboard)
	s.echo.GET("/display.json", s.handleDisplay)
	s.echo.GET("/health", s.handleHealth)
	if s.metrics != nil {
		s.echo.GET("/metrics", echo.WrapHandler(s.metrics))
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func noArtifact(c echo.Context) error {
	return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "no leaderboard published yet"})
}

func (s *Server) handleLeaderboard(c echo.Context) error {
	raw, etag, ok := s.feed.Latest()
	if !ok {
		return noArtifact(c)
	}

	h := c.Response().Header()
	h.Set("Cache-Control", "no-cache")
	h.Set("ETag", etag)
	if c.Request().Header.Get("If-None-Match") == etag {
		return c.NoContent(http.StatusNotModified)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, raw)
}

func (s *Server) handleDisplay(c echo.Context) error {
	d, ok := s.feed.Display(s.slots)
	if !ok {
		return noArtifact(c)
	}
	c.Response().Header().Set("Cache-Control", "no-cache")
	return c.JSON(http.StatusOK, d)
}

type healthResponse struct {
	Status        string     `json:"status"`
	UptimeSeconds int64      `json:"uptime_seconds"`
	LastPublished *time.Time `json:"last_published"`
}

func (s *Server) handleHealth(c echo.Context) error {
	resp := healthResponse{
		Status:        "ok",
		UptimeSeconds: int64(time.Since(s.started).Seconds()),
	}
	if at := s.feed.PublishedAt(); !at.IsZero() {
		at = at.UTC()
		resp.LastPublished = &at
	}
	return c.JSON(http.StatusOK, resp)
}

// Start binds addr and serves in the background. Bind errors are returned
// directly; later serve errors arrive on Err.
func (s *Server) Start(addr string) error {
	if addr == "" {
		addr = DefaultListen
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.New(err).
			Component("overlay").
			Category(errors.CategoryNetwork).
			Context("listen", addr).
			Build()
	}
	s.listener = ln
	s.echo.Listener = ln

	go func() {
		if err := s.echo.Start(""); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()

	s.log.Info("overlay server listening", logger.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address, empty before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Err delivers a serve failure, and is closed when serving stops.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.listener == nil {
		return nil
	}
	if err := s.echo.Shutdown(ctx); err != nil {
		return errors.New(err).
			Component("overlay").
			Category(errors.CategoryNetwork).
			Build()
	}
	s.log.Info("overlay server stopped")
	return nil
}
