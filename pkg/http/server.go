package http

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"Jarvis/pkg/http/middleware"
	applogger "Jarvis/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler registers a group of routes.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	// SlowThreshold is the latency above which requests log at warn.
	SlowThreshold time.Duration
	MetricsPath   string
	CORSOrigins   []string
	Logger        *applogger.Logger
	// Middleware runs after recovery, access logging and CORS.
	Middleware []echo.MiddlewareFunc
}

func (c *ServerConfig) setDefaults() {
	if c.Port == 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 10 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 10 * time.Second
	}
	if c.MetricsPath == "" {
		c.MetricsPath = "/metrics"
	}
	if c.Logger == nil {
		c.Logger = applogger.Nop()
	}
}

// Server is the Echo server with the Jarvis middleware stack, /healthz and
// the Prometheus endpoint.
type Server struct {
	echo  *echo.Echo
	cfg   ServerConfig
	errCh chan error
}

func NewServer(cfg ServerConfig, handlers ...Handler) *Server {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = cfg.ReadTimeout
	e.Server.WriteTimeout = cfg.WriteTimeout

	e.Use(middleware.Recover(cfg.Logger))
	e.Use(middleware.Access(cfg.Logger, cfg.SlowThreshold))
	e.Use(middleware.CORS(cfg.CORSOrigins))
	e.Use(cfg.Middleware...)

	for _, h := range handlers {
		if h != nil {
			h.RegisterRoutes(e)
		}
	}
	e.GET("/healthz", func(c echo.Context) error {
		return SuccessResponse(c, map[string]string{"status": "ok"})
	})
	e.GET(cfg.MetricsPath, echo.WrapHandler(promhttp.Handler()))

	return &Server{echo: e, cfg: cfg, errCh: make(chan error, 1)}
}

// Start listens in the background. A listener failure arrives on Errors.
func (s *Server) Start() error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	go func() {
		s.cfg.Logger.Info("http server listening", applogger.String("addr", addr))
		if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
	}()
	return nil
}

func (s *Server) Errors() <-chan error { return s.errCh }

// Stop drains in-flight requests, bounded by ctx and ShutdownTimeout.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.cfg.Logger.Info("http server stopped")
	return nil
}

func (s *Server) Echo() *echo.Echo { return s.echo }
