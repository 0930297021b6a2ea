package handler

import (
	"donation-gateway/config"
	"donation-gateway/internal/adapter/http/middleware"
	redisStore "donation-gateway/internal/adapter/storage/redis"
	"donation-gateway/internal/core/ports"
	"donation-gateway/internal/live"
	"donation-gateway/pkg/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	DonationSvc        ports.DonationService
	FeedSvc            ports.FeedService
	FeedAuth           ports.FeedAuthenticator
	StatsSvc           ports.StatsService
	TokenSvc           ports.TokenService
	Recipients         ports.RecipientRepository
	Subscriber         ports.Subscriber // nil = viewer sessions poll only
	Ledger             live.Ledger
	Live               config.LiveConfig
	RateLimitStore     *redisStore.RateLimitStore // nil = rate limiting disabled
	DonationsPerMinute int64
	HealthCheckers     []ports.HealthChecker
	Metrics            *metrics.Metrics
	Logger             zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	widgetHandler := NewWidgetHandler(deps.Recipients, deps.Subscriber, deps.Ledger, deps.Live, deps.Metrics, deps.Logger)
	r.GET("/widget/:recipient_id", widgetHandler.Page)

	v1 := r.Group("/api/v1")

	// --- Public ingestion ---
	donationHandler := NewDonationHandler(deps.DonationSvc)
	v1.POST("/donations",
		middleware.RateLimiter(deps.RateLimitStore, "donations", middleware.PerMinute(deps.DonationsPerMinute), deps.Logger),
		donationHandler.Submit,
	)

	// --- Event feed (shared bearer secret) ---
	webhookHandler := NewWebhookHandler(deps.FeedSvc)
	v1.POST("/webhooks/helius", middleware.FeedAuth(deps.FeedAuth, deps.Logger), webhookHandler.Receive)

	// --- Viewer stream ---
	v1.GET("/widget/:recipient_id/stream", widgetHandler.Stream)

	// --- JWT-authenticated read API, scoped to the token's recipient ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	recipientHandler := NewRecipientHandler(deps.StatsSvc)
	recipients := v1.Group("/recipients/:recipient_id", jwtAuth)
	{
		recipients.GET("/donations", recipientHandler.ListDonations)
		recipients.GET("/stats", recipientHandler.GetStats)
	}

	return r
}
