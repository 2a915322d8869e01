// Package health exposes an HTTP endpoint for container probes.
package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/anpruch/clubbot/core/logger"
)

const (
	pingTimeout       = 2 * time.Second
	readHeaderTimeout = 2 * time.Second
)

// Pinger is satisfied by *sqlx.DB and *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Options configures the health server.
type Options struct {
	Listen string
	// DB is pinged on every probe when set.
	DB Pinger
	// Details adds fields to the response body.
	Details func() map[string]any
}

// Server hosts GET /healthz.
type Server struct {
	opts   Options
	engine *gin.Engine
	server *http.Server
	done   chan struct{}
}

// NewServer builds the router without starting a listener.
func NewServer(opts Options) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	s := &Server{opts: opts, engine: engine}
	engine.GET("/healthz", s.handleHealth)
	return s
}

// Handler returns the HTTP handler serving the health routes.
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens on opts.Listen and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.opts.Listen)
	if err != nil {
		return fmt.Errorf("health listen: %w", err)
	}
	s.server = &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.done = make(chan struct{})
	logger.Health.Info("health server started",
		slog.String("event", "health.listen"),
		slog.String("addr", ln.Addr().String()),
	)
	go func() {
		defer close(s.done)
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Health.Error("health server failed",
				slog.String("event", "health.serve"),
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		}
	}()
	return nil
}

// Shutdown stops the server and waits for Serve to return.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	err := s.server.Shutdown(ctx)
	<-s.done
	logger.Health.Info("health server stopped", slog.String("event", "health.stop"))
	return err
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok"}
	code := http.StatusOK

	if s.opts.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
		err := s.opts.DB.PingContext(ctx)
		cancel()
		if err != nil {
			body["status"] = "degraded"
			body["db"] = "error"
			code = http.StatusServiceUnavailable
			logger.Health.Warn("database ping failed",
				slog.String("event", "health.db"),
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
		} else {
			body["db"] = "ok"
		}
	}
	if s.opts.Details != nil {
		for k, v := range s.opts.Details() {
			if _, taken := body[k]; !taken {
				body[k] = v
			}
		}
	}
	c.JSON(code, body)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if !logger.ShouldSampleDebug() {
			return
		}
		logger.Health.LogAttrs(c.Request.Context(), slog.LevelDebug, "health request",
			slog.String("event", "health.request"),
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("code", c.Writer.Status()),
			slog.Duration("duration", logger.Took(start)),
		)
	}
}
