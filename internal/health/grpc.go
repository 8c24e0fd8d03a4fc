package health

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// DefaultProbeInterval is how often the gRPC status is refreshed from the checker.
const DefaultProbeInterval = 10 * time.Second

// GRPCServer exposes grpc.health.v1.Health backed by a Checker.
type GRPCServer struct {
	checker  *Checker
	service  string
	interval time.Duration
	logger   *logrus.Logger
	health   *grpchealth.Server
	server   *grpc.Server
}

// NewGRPCServer creates a gRPC health server. The overall status ("") and the
// named service share the checker's verdict.
func NewGRPCServer(checker *Checker, service string, interval time.Duration, logger *logrus.Logger) *GRPCServer {
	if interval <= 0 {
		interval = DefaultProbeInterval
	}
	hs := grpchealth.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(service, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	return &GRPCServer{
		checker:  checker,
		service:  service,
		interval: interval,
		logger:   logger,
		health:   hs,
		server:   srv,
	}
}

// Refresh runs the checker once and publishes the result.
func (g *GRPCServer) Refresh(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if _, ok := g.checker.Check(ctx); !ok {
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	g.health.SetServingStatus("", status)
	g.health.SetServingStatus(g.service, status)
	return status
}

// Serve listens on lis and blocks until Stop. Status is refreshed in the
// background until ctx is cancelled.
func (g *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	go g.probe(ctx)

	g.logger.WithField("addr", lis.Addr().String()).Info("gRPC health server starting")
	if err := g.server.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return fmt.Errorf("grpc health server: %w", err)
	}
	return nil
}

// ListenAndServe binds the port and calls Serve.
func (g *GRPCServer) ListenAndServe(ctx context.Context, port int) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("listen grpc health: %w", err)
	}
	return g.Serve(ctx, lis)
}

func (g *GRPCServer) probe(ctx context.Context) {
	g.Refresh(ctx)

	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Refresh(ctx)
		}
	}
}

// Stop marks everything NOT_SERVING and stops the server gracefully.
func (g *GRPCServer) Stop() {
	g.health.Shutdown()
	g.server.GracefulStop()
}
