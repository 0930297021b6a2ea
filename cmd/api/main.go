package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"donation-gateway/config"
	solanaChain "donation-gateway/internal/adapter/chain/solana"
	httpHandler "donation-gateway/internal/adapter/http/handler"
	pgStorage "donation-gateway/internal/adapter/storage/postgres"
	redisStorage "donation-gateway/internal/adapter/storage/redis"
	"donation-gateway/internal/core/ports"
	"donation-gateway/internal/service"
	"donation-gateway/pkg/logger"
	"donation-gateway/pkg/metrics"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	gin.SetMode(cfg.Server.Mode)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("commitment", cfg.Solana.Commitment).
		Msg("Starting donation gateway")

	tokenSvc, err := service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid jwt.secret")
	}

	ctx := context.Background()

	if cfg.Database.AutoMigrate {
		if err := pgStorage.Migrate(ctx, cfg.Database.DSN(), log); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply migrations")
		}
	}

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	m := metrics.New()

	// Repositories
	recipientRepo := pgStorage.NewRecipientRepo(pool)
	donationRepo := pgStorage.NewDonationRepo(pool)

	// Chain access
	rpcClient := rpc.New(cfg.Solana.RPCURL)
	reader := solanaChain.NewReader(rpcClient, cfg.Solana, redisStorage.NewChainCache(rdb), logger.Component(log, "chain"))
	validator := service.NewChainValidator(reader, m, logger.Component(log, "validator"))

	// Push fan-out: one broadcaster serves both the ingestion side and viewer sessions
	broadcaster := redisStorage.NewBroadcaster(rdb, cfg.Live.HandshakeTimeout, logger.Component(log, "broadcaster"))

	// Core services
	hashSvc := service.NewArgon2HashService()
	feedAuth := service.NewFeedAuth(cfg.Feed, hashSvc)
	donationSvc := service.NewDonationService(recipientRepo, donationRepo, validator, broadcaster, m, logger.Component(log, "donations"))
	feedSvc := service.NewFeedService(recipientRepo, donationRepo, validator, broadcaster, cfg.Feed.Revalidate, m, logger.Component(log, "feed"))
	statsSvc := service.NewStatsService(donationRepo)

	if cfg.Feed.Secret == "" && cfg.Feed.SecretHash == "" {
		log.Warn().Msg("No feed secret configured, webhook deliveries will be rejected")
	}

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		DonationSvc:        donationSvc,
		FeedSvc:            feedSvc,
		FeedAuth:           feedAuth,
		StatsSvc:           statsSvc,
		TokenSvc:           tokenSvc,
		Recipients:         recipientRepo,
		Subscriber:         broadcaster,
		Ledger:             donationRepo,
		Live:               cfg.Live,
		RateLimitStore:     redisStorage.NewRateLimitStore(rdb),
		DonationsPerMinute: cfg.RateLimit.DonationsPerMinute,
		HealthCheckers: []ports.HealthChecker{
			pgStorage.NewHealthCheck(pool),
			redisStorage.NewHealthCheck(rdb),
			solanaChain.NewHealthCheck(rpcClient),
		},
		Metrics: m,
		Logger:  log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := newServer(addr, router)

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
