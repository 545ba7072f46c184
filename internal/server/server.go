// Package server exposes the session engine as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Bradley1112/nurture/internal/metrics"
	"github.com/Bradley1112/nurture/internal/personalize"
	"github.com/Bradley1112/nurture/internal/progress"
	"github.com/Bradley1112/nurture/internal/session"
	"github.com/Bradley1112/nurture/internal/store"
)

// Engine is the part of session.Service the API serves.
type Engine interface {
	Progress(ctx context.Context, key store.Key) (*progress.TopicProgress, bool, error)
	InitializeSessionConfig(ctx context.Context, key store.Key) (*personalize.SessionInitConfig, error)
	StartSession(ctx context.Context, key store.Key, in session.StartInput) (*session.StartResult, error)
	FinalizeSession(ctx context.Context, key store.Key, in session.FinalizeInput) (*session.FinalizeResult, error)
}

// Options wires a Server. Gatherer and Ping are optional.
type Options struct {
	Config   Config
	Engine   Engine
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	// Ping reports store health for /health.
	Ping func(ctx context.Context) error
}

// Server is the HTTP adapter over an Engine.
type Server struct {
	cfg     Config
	engine  Engine
	log     *zap.Logger
	ping    func(ctx context.Context) error
	limiter *ipLimiter
	router  *gin.Engine
}

// New builds the router. Logger and Metrics may be nil.
func New(opts Options) *Server {
	s := &Server{
		cfg:    opts.Config,
		engine: opts.Engine,
		log:    opts.Logger,
		ping:   opts.Ping,
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.Named("http")
	if s.cfg.RateLimit.Requests > 0 {
		s.limiter = newIPLimiter(s.cfg.RateLimit)
	}
	gin.SetMode(s.cfg.Mode)
	s.router = s.routes(opts.Metrics, opts.Gatherer)
	return s
}

func (s *Server) routes(m *metrics.Metrics, g prometheus.Gatherer) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), requestMetrics(m))

	r.GET("/health", s.health)
	if g != nil {
		h := promhttp.HandlerFor(g, promhttp.HandlerOpts{})
		r.GET("/metrics", gin.WrapH(h))
	}

	api := r.Group("/api/v1")
	if s.limiter != nil {
		api.Use(s.limiter.middleware())
	}
	topic := api.Group("/progress/:userId/:subjectId/:topicId")
	topic.GET("", s.getProgress)
	topic.GET("/session-config", s.getSessionConfig)
	topic.POST("/sessions/start", s.startSession)
	topic.POST("/sessions/finalize", s.finalizeSession)
	return r
}

// Handler returns the router, mostly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	if s.limiter != nil {
		go s.sweepVisitors(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	s.log.Info("shutting down")
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) sweepVisitors(ctx context.Context) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := s.limiter.sweep(); n > 0 {
				s.log.Debug("rate limiter swept idle clients", zap.Int("dropped", n))
			}
		}
	}
}
