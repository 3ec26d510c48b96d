package grpcserver

import (
	"context"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Check pings Redis once and publishes the result.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	pingCtx, cancel := context.WithTimeout(ctx, s.interval)
	defer cancel()

	st := healthpb.HealthCheckResponse_SERVING
	if err := s.Redis.Ping(pingCtx).Err(); err != nil {
		st = healthpb.HealthCheckResponse_NOT_SERVING
		s.Logger.Warn("health check failed", "err", err)
	}
	s.Health.SetServingStatus("", st)
	s.Health.SetServingStatus(ServiceName, st)
	return st
}

// RunChecks checks every interval until ctx is canceled, then marks the
// server as shutting down so watchers see NOT_SERVING.
func (s *Server) RunChecks(ctx context.Context) {
	s.Check(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Health.Shutdown()
			return
		case <-ticker.C:
			s.Check(ctx)
		}
	}
}
