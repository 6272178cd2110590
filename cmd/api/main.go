package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"fintrait-chat/internal/backend"
	"fintrait-chat/internal/config"
	"fintrait-chat/internal/db"
	apihttp "fintrait-chat/internal/http"
	"fintrait-chat/internal/repository"
	"fintrait-chat/internal/service"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	client := backend.NewHTTPClient(cfg.AssessmentBaseURL, logger)

	recorder := service.NewNoopRecorder()
	if cfg.DatabaseURL != "" {
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			logger.Warn("db connect failed, transcript persistence disabled", zap.Error(err))
		} else {
			defer pool.Close()
			messageRepo := repository.NewPgMessageRepository(pool)
			assessmentRepo := repository.NewPgAssessmentRepository(pool)
			recorder = service.NewRepoRecorder(messageRepo, assessmentRepo)
		}
	}

	stateCache := service.NewMemoryStateCache()
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory state cache", zap.Error(err))
		} else {
			stateCache = service.NewRedisStateCache(redisClient)
		}
		cancel()
	}

	if cfg.JWTSecret == "" {
		logger.Warn("jwt secret not configured")
	}
	tokens := service.NewSessionTokenService(
		cfg.JWTSecret,
		time.Duration(cfg.JWTSessionTTLMinutes)*time.Minute,
	)

	hub := apihttp.NewStreamHub(logger)
	manager := service.NewConversationManager(
		client,
		recorder,
		hub,
		stateCache,
		time.Duration(cfg.StateCacheTTLHours)*time.Hour,
		logger,
	)

	chatHandler := apihttp.NewChatHandler(logger, manager, tokens)
	streamHandler := apihttp.NewStreamHandler(logger, hub, tokens)
	router := apihttp.NewRouter(logger, chatHandler, streamHandler, tokens)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("starting gateway", zap.String("port", cfg.HTTPPort), zap.String("backend", cfg.AssessmentBaseURL))

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
