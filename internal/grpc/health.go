package grpc

import (
	"context"
	"errors"

	"github.com/biblioteca/services/library/internal/db"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"
)

var (
	ErrDatabaseUnavailable = errors.New("database connection failed")
	ErrBrokerUnavailable   = errors.New("rabbitmq connection failed")
)

// Broker is the event publisher as seen by health checks
type Broker interface {
	IsHealthy() bool
}

// HealthServer implements the gRPC health checking protocol
type HealthServer struct {
	grpc_health_v1.UnimplementedHealthServer
	db     *db.DB
	broker Broker
	log    *zap.Logger
}

// NewHealthServer creates a new health check server. A nil broker means event
// publishing is disabled and is not checked.
func NewHealthServer(database *db.DB, broker Broker, log *zap.Logger) *HealthServer {
	return &HealthServer{
		db:     database,
		broker: broker,
		log:    log,
	}
}

// Healthy returns nil when every dependency answers
func (h *HealthServer) Healthy(ctx context.Context) error {
	if err := h.db.Ping(); err != nil {
		h.log.Error("Database health check failed", zap.Error(err))
		return ErrDatabaseUnavailable
	}

	if h.broker != nil && !h.broker.IsHealthy() {
		h.log.Error("RabbitMQ health check failed")
		return ErrBrokerUnavailable
	}

	return nil
}

func (h *HealthServer) status(ctx context.Context) grpc_health_v1.HealthCheckResponse_ServingStatus {
	if h.Healthy(ctx) != nil {
		return grpc_health_v1.HealthCheckResponse_NOT_SERVING
	}
	return grpc_health_v1.HealthCheckResponse_SERVING
}

// Check implements the health check
func (h *HealthServer) Check(ctx context.Context, req *grpc_health_v1.HealthCheckRequest) (*grpc_health_v1.HealthCheckResponse, error) {
	return &grpc_health_v1.HealthCheckResponse{Status: h.status(ctx)}, nil
}

// Watch sends the current status once
func (h *HealthServer) Watch(req *grpc_health_v1.HealthCheckRequest, server grpc_health_v1.Health_WatchServer) error {
	return server.Send(&grpc_health_v1.HealthCheckResponse{Status: h.status(server.Context())})
}
