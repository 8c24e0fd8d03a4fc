// Package health provides liveness and readiness checks over HTTP and gRPC.
package health

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RootMessage is returned by GET /.
const RootMessage = "backtest vault is running"

const pingTimeout = 3 * time.Second

// DatabasePinger defines the interface for checking database connectivity.
type DatabasePinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse represents the JSON response for health check endpoints.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp,omitempty"`
	Version   string `json:"version,omitempty"`
}

// ReadyResponse represents the JSON response for readiness check endpoints.
type ReadyResponse struct {
	Status   string            `json:"status"`
	Service  string            `json:"service"`
	Checks   map[string]string `json:"checks,omitempty"`
	Duration string            `json:"duration,omitempty"`
}

// Config holds the configuration for the checker.
type Config struct {
	ServiceName string
	Version     string
	Logger      *logrus.Logger
	DB          DatabasePinger
}

// Checker answers health probes and tracks whether the service is ready.
type Checker struct {
	serviceName string
	version     string
	logger      *logrus.Logger
	db          DatabasePinger
	mu          sync.RWMutex
	ready       bool
}

// NewChecker creates a checker. It starts out not ready.
func NewChecker(cfg Config) *Checker {
	return &Checker{
		serviceName: cfg.ServiceName,
		version:     cfg.Version,
		logger:      cfg.Logger,
		db:          cfg.DB,
	}
}

// SetReady marks the service as ready to accept traffic.
func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

// IsReady returns whether the service is ready.
func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// Check runs every readiness check and reports per-check status.
func (c *Checker) Check(ctx context.Context) (map[string]string, bool) {
	checks := make(map[string]string)
	healthy := true

	if !c.IsReady() {
		healthy = false
		checks["service"] = "not_ready"
	} else {
		checks["service"] = "ok"
	}

	if c.db != nil {
		ctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()

		if err := c.db.Ping(ctx); err != nil {
			healthy = false
			checks["database"] = "unavailable"
			if c.logger != nil {
				c.logger.WithError(err).Warn("Readiness database ping failed")
			}
		} else {
			checks["database"] = "ok"
		}
	}
	return checks, healthy
}

// RegisterRoutes mounts /, /health, /live and /ready.
func (c *Checker) RegisterRoutes(r gin.IRoutes) {
	r.GET("/", c.handleRoot)
	r.GET("/health", c.handleHealth)
	r.GET("/live", c.handleLive)
	r.GET("/ready", c.handleReady)
}

func (c *Checker) handleRoot(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": RootMessage})
}

// handleHealth handles the /health endpoint - basic liveness check.
func (c *Checker) handleHealth(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   c.serviceName,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   c.version,
	})
}

func (c *Checker) handleLive(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, HealthResponse{Status: "ok", Service: c.serviceName})
}

// handleReady handles the /ready endpoint - checks database connectivity.
func (c *Checker) handleReady(ctx *gin.Context) {
	start := time.Now()
	checks, healthy := c.Check(ctx.Request.Context())

	response := ReadyResponse{
		Service:  c.serviceName,
		Checks:   checks,
		Duration: time.Since(start).String(),
	}
	if healthy {
		response.Status = "ok"
		ctx.JSON(http.StatusOK, response)
		return
	}
	response.Status = "not_ready"
	ctx.JSON(http.StatusServiceUnavailable, response)
}
