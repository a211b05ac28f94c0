package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/biblioteca/services/library/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm/logger"
)

const bufSize = 1024 * 1024

type stubBroker bool

func (b stubBroker) IsHealthy() bool { return bool(b) }

func setupTestDB(t *testing.T) *db.DB {
	database, err := db.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), logger.Discard)
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func startHealthServer(t *testing.T, health *HealthServer) grpc_health_v1.HealthClient {
	lis := bufconn.Listen(bufSize)
	server := grpc.NewServer(grpc.UnaryInterceptor(LoggingInterceptor(zap.NewNop())))
	grpc_health_v1.RegisterHealthServer(server, health)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return grpc_health_v1.NewHealthClient(conn)
}

func TestHealthCheckServing(t *testing.T) {
	client := startHealthServer(t, NewHealthServer(setupTestDB(t), stubBroker(true), zap.NewNop()))

	resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}

func TestHealthCheckWithoutBroker(t *testing.T) {
	health := NewHealthServer(setupTestDB(t), nil, zap.NewNop())
	assert.NoError(t, health.Healthy(context.Background()))
}

func TestHealthCheckBrokerDown(t *testing.T) {
	health := NewHealthServer(setupTestDB(t), stubBroker(false), zap.NewNop())
	assert.ErrorIs(t, health.Healthy(context.Background()), ErrBrokerUnavailable)

	client := startHealthServer(t, health)
	resp, err := client.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, resp.Status)
}

func TestHealthCheckDatabaseDown(t *testing.T) {
	database := setupTestDB(t)
	require.NoError(t, database.Close())

	health := NewHealthServer(database, stubBroker(true), zap.NewNop())
	assert.ErrorIs(t, health.Healthy(context.Background()), ErrDatabaseUnavailable)
}

func TestHealthWatchSendsCurrentStatus(t *testing.T) {
	client := startHealthServer(t, NewHealthServer(setupTestDB(t), nil, zap.NewNop()))

	stream, err := client.Watch(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	resp, err := stream.Recv()
	require.NoError(t, err)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.Status)
}
