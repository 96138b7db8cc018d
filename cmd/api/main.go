package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"foliogen/internal/api"
	"foliogen/internal/auth"
	"foliogen/internal/config"
	"foliogen/internal/database"
	"foliogen/internal/storage"
	"foliogen/internal/webhook"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		log.Fatalf("init database: %v", err)
	}
	log.Printf("database connection ready")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("auto migrate: %v", err)
	}
	log.Printf("database migrated")

	storageClient, err := storage.NewClient(cfg.MinIO)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	authService, err := auth.NewAuthService([]byte(cfg.Auth.ProviderPublicKeyPEM))
	if err != nil {
		log.Fatalf("init auth service: %v", err)
	}

	webhookVerifier, err := webhook.NewVerifier(cfg.Webhook.ClerkSecret)
	if err != nil {
		log.Fatalf("init webhook verifier: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := asynqClient.Close(); err != nil {
			logger.Error("close asynq client failed", slog.Any("error", err))
		}
	}()

	wsHandler := api.NewWsHandler(db, redisClient, authService, logger, cfg.API.AllowedOrigins)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, api.RouteDeps{
		DB:              db,
		Enqueuer:        asynqClient,
		Storage:         storageClient,
		PatchStore:      storageClient,
		AuthService:     authService,
		WebhookVerifier: webhookVerifier,
		WsHandler:       wsHandler,
		Logger:          logger,
		Config:          cfg,
	})

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)

	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
