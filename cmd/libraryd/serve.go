package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/biblioteca/services/library/internal/aggregate"
	"github.com/biblioteca/services/library/internal/auth"
	"github.com/biblioteca/services/library/internal/config"
	"github.com/biblioteca/services/library/internal/db"
	"github.com/biblioteca/services/library/internal/events"
	grpcserver "github.com/biblioteca/services/library/internal/grpc"
	"github.com/biblioteca/services/library/internal/metrics"
	"github.com/biblioteca/services/library/internal/repo"
	"github.com/biblioteca/services/library/internal/rest"
	"github.com/biblioteca/services/library/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func runServe() error {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log := logger.NewLogger(cfg.ServiceName, cfg.LogLevel)
	defer log.Sync()

	log.Info("Library service starting")

	tokens, err := auth.NewJWTManager(cfg.JWTSecret, cfg.SessionTimeout)
	if err != nil {
		log.Error("Invalid session configuration", zap.Error(err))
		return err
	}

	// Connect to database
	log.Info("Connecting to database...")
	database, err := db.Connect(cfg.PGDSN)
	if err != nil {
		log.Error("Failed to connect to database", zap.Error(err))
		return err
	}
	defer database.Close()

	// Run migrations
	log.Info("Running database migrations...")
	if err := db.RunMigrations(database); err != nil {
		log.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	// Initialize repository and aggregators
	libraryRepo := repo.NewLibraryRepository(database, log)
	recommender := aggregate.NewRecommender(libraryRepo, log, time.Now)
	loans := aggregate.NewLoanFormatter(libraryRepo, log, time.Now)

	if err := metrics.RegisterCatalogStats(prometheus.DefaultRegisterer, libraryRepo.GetStats); err != nil {
		log.Warn("Catalog gauges not registered", zap.Error(err))
	}

	// Connect to RabbitMQ. Reserve events are optional; the API keeps serving without them.
	log.Info("Connecting to RabbitMQ")
	var (
		reservePublisher rest.ReservePublisher
		broker           grpcserver.Broker
	)
	publisher, err := events.NewPublisher(cfg.RabbitMQURL, log)
	if err != nil {
		log.Warn("RabbitMQ unavailable, reserve events disabled", zap.Error(err))
	} else {
		defer publisher.Close()
		reservePublisher = publisher
		broker = publisher
	}

	health := grpcserver.NewHealthServer(database, broker, log)

	// Create gRPC server
	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(grpcserver.LoggingInterceptor(log)),
	)
	grpc_health_v1.RegisterHealthServer(grpcServer, health)

	// Enable reflection for grpcurl/grpcui
	reflection.Register(grpcServer)

	grpcListener, err := net.Listen("tcp", fmt.Sprintf(":%s", cfg.GRPCPort))
	if err != nil {
		log.Error("Failed to listen on gRPC port", zap.Error(err))
		return err
	}

	go func() {
		log.Info("Starting gRPC server", zap.String("address", grpcListener.Addr().String()))
		if err := grpcServer.Serve(grpcListener); err != nil {
			log.Error("gRPC server stopped", zap.Error(err))
		}
	}()

	api := rest.NewServer(rest.Options{
		Store:              libraryRepo,
		Searcher:           aggregate.NewSearcher(libraryRepo, log),
		Recommender:        recommender,
		Loans:              loans,
		Home:               aggregate.NewHomeBuilder(recommender, loans),
		Tokens:             tokens,
		Publisher:          reservePublisher,
		Health:             health,
		Metrics:            promhttp.Handler(),
		Log:                log,
		CookieSecure:       cfg.CookieSecure,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		TopReputationTier:  cfg.TopReputationTier,
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      api.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	sweepCtx, stopSweep := context.WithCancel(context.Background())
	defer stopSweep()
	go sweepOverdueLoans(sweepCtx, libraryRepo, cfg.ExpirySweep, log)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Starting HTTP server", zap.String("address", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err = <-serveErr:
		log.Error("HTTP server failed", zap.Error(err))
	}

	log.Info("Shutting down server...")
	stopSweep()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if shutdownErr := httpServer.Shutdown(ctx); shutdownErr != nil {
		log.Error("HTTP server shutdown error", zap.Error(shutdownErr))
	}
	api.Wait()
	grpcServer.GracefulStop()

	log.Info("Server stopped")
	return err
}

// sweepOverdueLoans expires overdue loans at startup and then every interval
func sweepOverdueLoans(ctx context.Context, libraryRepo *repo.LibraryRepository, interval time.Duration, log *zap.Logger) {
	if interval <= 0 {
		log.Info("Overdue loan sweep disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := libraryRepo.ExpireOverdueLoans(ctx, time.Now()); err != nil && ctx.Err() == nil {
			log.Warn("Overdue loan sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
