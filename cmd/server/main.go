package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/loyaltyhub/backend/internal/clock"
	"github.com/loyaltyhub/backend/internal/config"
	"github.com/loyaltyhub/backend/internal/database"
	"github.com/loyaltyhub/backend/internal/ledger"
	"github.com/loyaltyhub/backend/internal/outbox"
	"github.com/loyaltyhub/backend/internal/storage/postgres"
)

func main() {
	// Initialize config
	viper.SetConfigFile(".env") // explicitly point to .env file
	viper.AutomaticEnv()        // allow environment variables to override .env

	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.name", "DATABASE_NAME")
	viper.BindEnv("database.ssl_mode", "DATABASE_SSL_MODE")

	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")
	viper.BindEnv("redis.db", "REDIS_DB")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Config file not found, using defaults: %v", err)
	}

	cfg := config.LoadLedgerConfig()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	baseLog := logger.WithField("service", "points-ledger")

	db := database.InitDatabase()
	defer db.Close()

	redisClient := database.InitRedis()
	if redisClient == nil {
		log.Fatal("Redis is required for event delivery")
	}
	defer redisClient.Close()

	uow := postgres.NewUnitOfWork(db)
	accounts := postgres.NewAccountRepository(db)
	entries := postgres.NewLedgerRepository(db)
	holds := postgres.NewHoldRepository(db)
	idempotency := postgres.NewIdempotencyRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	clk := clock.NewSystem()
	engine := ledger.NewService(uow, accounts, entries, holds, idempotency, outboxRepo, clk, ledger.NewUUIDGenerator(), baseLog.WithField("component", "engine"))

	publisher := outbox.NewRedisPublisher(redisClient, cfg.OutboxEventsKey)
	poller := outbox.NewPoller(outboxRepo, uow, publisher, clk,
		cfg.OutboxPollInterval, cfg.OutboxBatchSize,
		cfg.OutboxBackoffBase, cfg.OutboxBackoffMax,
		baseLog.WithField("component", "outbox-poller"))
	sweeper := ledger.NewSweeper(engine, cfg.SweepInterval, cfg.SweepBatchSize, cfg.SweepMaxIterations,
		baseLog.WithField("component", "hold-sweeper"))

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	go poller.Run(workerCtx)
	go sweeper.Run(workerCtx)

	// Setup router
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unready", "error": err.Error()})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Start server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		baseLog.WithField("port", port).Info("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	baseLog.Info("server shutting down")
	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	baseLog.Info("server stopped")
}
