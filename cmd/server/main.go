package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"maplive-service/internal/adapters/kafka"
	"maplive-service/internal/adapters/storage"
	"maplive-service/internal/api/routes"
	"maplive-service/internal/config"
	"maplive-service/internal/database"
	"maplive-service/internal/hub"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting maplive server")

	// Redis is optional. Without it the hub delivers locally only and
	// rate limiting falls back to allowing everything through.
	var redisClient *redis.Client
	if cfg.Redis.URI != "" {
		redisClient, err = database.NewRedisConnection(cfg.Redis.URI)
		if err != nil {
			slog.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()
	}

	db, err := database.NewPostgresConnection(cfg.Database.URI)
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	var journal hub.Journal
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaJournal, err := kafka.NewJournal(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			slog.Error("Failed to connect to Kafka", "error", err)
			os.Exit(1)
		}
		defer kafkaJournal.Close()
		journal = kafkaJournal
	}

	var snapshots hub.SnapshotStore
	if cfg.Storage.Endpoint != "" {
		store, err := storage.NewSnapshotStore(
			cfg.Storage.Endpoint,
			cfg.Storage.AccessKey,
			cfg.Storage.SecretKey,
			cfg.Storage.Bucket,
			cfg.Storage.PublicURL,
		)
		if err != nil {
			slog.Error("Failed to connect to object storage", "error", err)
			os.Exit(1)
		}
		snapshots = store
	}

	liveHub := hub.New(redisClient, journal, snapshots)
	go liveHub.Run()

	router := routes.NewRouter(liveHub, redisClient, db, cfg.JWT.Secret, cfg.JWT.Expire)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	liveHub.Stop()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
