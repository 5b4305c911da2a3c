// Package grpc exposes the operational gRPC surface of the product service.
package grpc

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the product catalog.
const ServiceName = "productcatalog.v1.ProductCatalog"

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// HealthServer publishes grpc.health.v1 status for the whole server and for ServiceName.
type HealthServer struct {
	server *health.Server
	logger *slog.Logger
}

func NewHealthServer(logger *slog.Logger) *HealthServer {
	hs := &HealthServer{
		server: health.NewServer(),
		logger: logger.With("component", "grpc-health"),
	}
	hs.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
	return hs
}

// Register adds the health service to s.
func (h *HealthServer) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Monitor runs check every interval and reports SERVING while it succeeds.
// It blocks until ctx is done, then reports NOT_SERVING permanently.
func (h *HealthServer) Monitor(ctx context.Context, interval time.Duration, check CheckFunc) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.probe(ctx, interval, check)
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return nil
		case <-ticker.C:
			h.probe(ctx, interval, check)
		}
	}
}

func (h *HealthServer) probe(ctx context.Context, timeout time.Duration, check CheckFunc) {
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := check(checkCtx); err != nil {
		if ctx.Err() == nil {
			h.logger.WarnContext(ctx, "Health check failed", "error", err)
		}
		h.setStatus(healthpb.HealthCheckResponse_NOT_SERVING)
		return
	}
	h.setStatus(healthpb.HealthCheckResponse_SERVING)
}

func (h *HealthServer) setStatus(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(ServiceName, status)
}
