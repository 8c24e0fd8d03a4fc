// Package api implements the HTTP Query Service over the record store.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/backtest-vault/internal/config"
	"github.com/yourusername/backtest-vault/internal/events"
	"github.com/yourusername/backtest-vault/internal/health"
	"github.com/yourusername/backtest-vault/internal/logger"
	"github.com/yourusername/backtest-vault/internal/metrics"
	"github.com/yourusername/backtest-vault/internal/repository"
)

// EventHub publishes collection-changed signals and serves the websocket feed.
type EventHub interface {
	http.Handler
	Publish(ev events.Event)
}

// Deps are the collaborators the server is constructed with.
type Deps struct {
	Config *config.Config
	Repos  *repository.Repositories
	Events EventHub
	Health *health.Checker
	Logger *logrus.Logger
	Audit  *logger.AuditLogger
}

// Server hosts the Query Service.
type Server struct {
	cfg     *config.Config
	repos   *repository.Repositories
	events  EventHub
	health  *health.Checker
	log     *logrus.Logger
	audit   *logger.AuditLogger
	engine  *gin.Engine
	httpSrv *http.Server
}

// NewServer wires middleware and routes.
func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, errors.New("config is required")
	}
	if deps.Repos == nil {
		return nil, errors.New("repositories are required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Audit == nil {
		deps.Audit = logger.NewAuditLogger(deps.Logger)
	}

	registerValidators()
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:    deps.Config,
		repos:  deps.Repos,
		events: deps.Events,
		health: deps.Health,
		log:    deps.Logger,
		audit:  deps.Audit,
	}
	s.engine = s.routes()
	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddress(),
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		requestID(),
		accessLog(s.log),
		recovery(s.log),
		cors(s.cfg.Server.AllowedOrigins),
		bodyLimit(s.cfg.Server.MaxBodyBytes),
	)

	if s.health != nil {
		s.health.RegisterRoutes(r)
	}
	if s.cfg.Metrics.Enabled {
		r.GET(s.cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/backtest", s.listBacktests)
		api.POST("/backtest", s.createBacktest)
		api.PUT("/backtest/:id", s.updateBacktest)
		api.DELETE("/backtest/:id", s.deleteBacktest)

		api.GET("/strategies", s.listStrategies)
		api.POST("/upload/strategies", s.uploadStrategy)
		api.DELETE("/strategies/:id", s.deleteStrategy)

		if s.events != nil {
			api.GET("/events", gin.WrapH(s.events))
		}
	}
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe blocks serving HTTP until Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.WithField("addr", s.httpSrv.Addr).Info("Query service listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) publish(collection, action string, id int64) {
	if s.events == nil {
		return
	}
	s.events.Publish(events.Event{Collection: collection, Action: action, ID: id})
}

// fail writes the error response. Internal detail is logged, never returned.
func (s *Server) fail(c *gin.Context, op string, err error) {
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.WithFields(logrus.Fields{
			"request_id": c.GetString(RequestIDKey),
			"operation":  op,
		}).WithError(err).Error("Store operation failed")
	}
	c.JSON(status, ErrorResponse{Error: msg})
}
