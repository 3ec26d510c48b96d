package grpcserver

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name reported for the queue. The empty
// name reports the same status.
const ServiceName = "relayq.Queue"

const DefaultCheckInterval = 5 * time.Second

// Server serves the standard gRPC health protocol, backed by a Redis ping.
type Server struct {
	Health *health.Server
	Redis  *redis.Client
	Logger *slog.Logger

	interval time.Duration
}

func New(rc *redis.Client, logger *slog.Logger, interval time.Duration) *Server {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	return &Server{Health: hs, Redis: rc, Logger: logger, interval: interval}
}

// NewGRPCServer registers the health service with a new grpc.Server and
// returns it.
func NewGRPCServer(srv *Server) *grpc.Server {
	s := grpc.NewServer()
	healthpb.RegisterHealthServer(s, srv.Health)
	return s
}
