// Package server serves the calendar agent over HTTP.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/zwrong/Calendar-Agent/internal/profile"
	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
	"github.com/zwrong/Calendar-Agent/plugin/ai/session"
	"github.com/zwrong/Calendar-Agent/server/internal/observability"
	"github.com/zwrong/Calendar-Agent/server/middleware"
	apiv1 "github.com/zwrong/Calendar-Agent/server/router/api/v1"
)

const (
	// limiterIdle is how long an idle client keeps its rate limiter.
	limiterIdle = 10 * time.Minute
	// metricsRetentionSchedule prunes in-memory metric buckets.
	metricsRetentionSchedule = "@hourly"
	limiterPruneSchedule     = "@every 5m"
)

// Dependencies are the services the server routes to.
type Dependencies struct {
	Agent    apiv1.CommandHandler
	Sessions session.SessionService
	Metrics  metrics.MetricsService
	// Gatherer backs /metrics; nil uses the default prometheus registry.
	Gatherer prometheus.Gatherer
	// RateLimiter overrides the per-client limiter.
	RateLimiter *middleware.RateLimiter
}

type Server struct {
	Profile *profile.Profile

	echoServer  *echo.Echo
	sessions    session.SessionService
	metrics     metrics.MetricsService
	rateLimiter *middleware.RateLimiter
	cleanup     *session.CleanupJob
	cron        *cron.Cron
	listener    net.Listener
}

func NewServer(profile *profile.Profile, deps Dependencies) (*Server, error) {
	if deps.Agent == nil {
		return nil, errors.New("agent is required")
	}
	if deps.Sessions == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	if deps.RateLimiter == nil {
		deps.RateLimiter = middleware.NewRateLimiter()
	}

	s := &Server{
		Profile:     profile,
		sessions:    deps.Sessions,
		metrics:     deps.Metrics,
		rateLimiter: deps.RateLimiter,
		cron:        cron.New(),
	}

	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(observability.Middleware(slog.Default()))
	s.echoServer = echoServer

	// Register healthz endpoint.
	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})
	echoServer.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	apiV1Service := apiv1.NewAPIV1Service(profile, deps.Agent, deps.Sessions, deps.Metrics)
	apiMiddlewares := []echo.MiddlewareFunc{s.rateLimiter.Middleware(middleware.SessionOrIP)}
	if profile.APISecret != "" {
		apiMiddlewares = append(apiMiddlewares, middleware.NewTokenAuth(profile.APISecret).Middleware())
	}
	apiV1Service.RegisterRoutes(echoServer, apiMiddlewares...)

	if cleaner, ok := deps.Sessions.(session.Cleaner); ok {
		s.cleanup = session.NewCleanupJob(cleaner, session.DefaultCleanupInterval)
	}
	return s, nil
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start listens on the profile address and serves until Shutdown. It does not block.
func (s *Server) Start(ctx context.Context) error {
	address := net.JoinHostPort(s.Profile.Addr, strconv.Itoa(s.Profile.Port))
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.listener = listener

	if s.cleanup != nil {
		if err := s.cleanup.Start(ctx); err != nil {
			listener.Close()
			return errors.Wrap(err, "failed to start session cleanup")
		}
	}
	if err := s.startBackgroundJobs(); err != nil {
		listener.Close()
		return err
	}

	s.echoServer.Listener = listener
	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	slog.Info("calendar agent listening", slog.String("address", listener.Addr().String()))
	return nil
}

func (s *Server) startBackgroundJobs() error {
	if _, err := s.cron.AddFunc(limiterPruneSchedule, func() {
		if n := s.rateLimiter.Prune(limiterIdle); n > 0 {
			slog.Debug("pruned idle rate limiters", slog.Int("count", n))
		}
	}); err != nil {
		return errors.Wrap(err, "failed to schedule rate limiter pruning")
	}
	if pruner, ok := s.metrics.(interface{ Prune() int }); ok {
		if _, err := s.cron.AddFunc(metricsRetentionSchedule, func() { pruner.Prune() }); err != nil {
			return errors.Wrap(err, "failed to schedule metrics pruning")
		}
	}
	s.cron.Start()
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")

	// Shutdown echo server.
	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}

	if s.cleanup != nil {
		s.cleanup.Stop()
	}
	<-s.cron.Stop().Done()

	if closer, ok := s.sessions.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Error("failed to close session store", slog.String("error", err.Error()))
		}
	}

	slog.Info(fmt.Sprintf("server stopped properly at %s", time.Now().Format(time.RFC3339)))
}
