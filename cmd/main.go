package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/api"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/config"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/events"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/interfaces"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/repository"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/service"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/telemetry"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize telemetry
	if err := telemetry.InitTelemetry("sheepy-gateway", cfg.JaegerEndpoint); err != nil {
		panic(fmt.Sprintf("Failed to initialize telemetry: %v", err))
	}
	defer telemetry.Shutdown(context.Background())

	telemetry.Logger.Info("Starting Sheepy Gateway")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		telemetry.Logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(db)
	if err := orderRepo.InitDB(); err != nil {
		telemetry.Logger.Fatal("Failed to initialize orders schema", zap.Error(err))
	}
	settingsRepo := repository.NewSettingsRepository(db)
	if err := settingsRepo.InitDB(); err != nil {
		telemetry.Logger.Fatal("Failed to initialize settings schema", zap.Error(err))
	}
	if err := seedSettings(context.Background(), settingsRepo, cfg.GatewaySettingsFile); err != nil {
		telemetry.Logger.Fatal("Failed to seed gateway settings", zap.Error(err))
	}

	// Connect to Redis
	var locker interfaces.OrderLocker
	if cfg.RedisURL != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr: cfg.RedisURL,
		})
		defer redisClient.Close()
		locker = repository.NewRedisOrderLock(redisClient, repository.DefaultLockTTL)
	}

	// Connect to NATS
	var nc *nats.Conn
	if cfg.NatsURL != "" {
		nc, err = nats.Connect(cfg.NatsURL)
		if err != nil {
			telemetry.Logger.Fatal("Failed to connect to NATS", zap.Error(err))
		}
		defer nc.Close()
	}

	// Connect to Kafka
	var kafkaWriter *kafka.Writer
	if cfg.KafkaBrokers != "" {
		kafkaWriter = &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(cfg.KafkaBrokers, ",")...),
			Topic:    events.OrderStateChangedTopic,
			Balancer: &kafka.Hash{},
		}
		defer kafkaWriter.Close()
	}

	publisher := events.NewFromTransports(kafkaWriter, nc)

	// Initialize services
	reconciler := service.NewReconciler(orderRepo, locker, publisher)
	gateway := service.NewGateway(service.GatewayConfig{
		SiteURL:          cfg.SiteURL,
		NotificationPath: cfg.NotificationPath,
		SuccessPath:      cfg.SuccessPath,
		Currency:         cfg.StoreCurrency,
		APIBaseURL:       cfg.SheepyAPIURL,
	}, settingsRepo, orderRepo, reconciler, publisher)

	if cfg.AdminToken == "" {
		telemetry.Logger.Warn("ADMIN_TOKEN is not set, order and settings routes will refuse every request")
	}
	r := api.NewRouter(gateway, cfg.NotificationPath, cfg.AdminToken)

	// Setup HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		telemetry.Logger.Info("Sheepy Gateway starting",
			zap.String("port", cfg.Port),
			zap.String("notification_url", gateway.NotificationURL()),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			telemetry.Logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	telemetry.Logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		telemetry.Logger.Error("Server forced to shutdown", zap.Error(err))
	}

	telemetry.Logger.Info("Server exited")
}

// seedSettings stores the settings file on first start only; settings
// edited later through the API are never overwritten.
func seedSettings(ctx context.Context, repo *repository.SettingsRepository, path string) error {
	if path == "" {
		return nil
	}

	exists, err := repo.Exists(ctx)
	if err != nil || exists {
		return err
	}

	settings, err := config.LoadGatewaySettings(path)
	if err != nil {
		return err
	}
	if err := repo.Save(ctx, settings); err != nil {
		return err
	}

	telemetry.Logger.Info("Seeded gateway settings", zap.String("file", path))
	return nil
}
