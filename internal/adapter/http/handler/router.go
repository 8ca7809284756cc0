package handler

import (
	"custodial-wallet/internal/adapter/http/middleware"
	redisStore "custodial-wallet/internal/adapter/storage/redis"
	"custodial-wallet/internal/core/domain"
	"custodial-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	WalletSvc      ports.WalletService
	DepositSvc     ports.DepositService
	TransferSvc    ports.TransferService
	APIKeySvc      ports.APIKeyService
	AccessSvc      ports.AccessService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	// --- Gateway webhook (signature-authenticated, no access gate) ---
	webhookHandler := NewWebhookHandler(deps.DepositSvc, deps.Logger)
	r.POST("/webhooks/paystack", rl("webhooks"), webhookHandler.Receive)

	// --- Authenticated API (session token or API key) ---
	gate := middleware.AccessGate(deps.AccessSvc, deps.Logger)
	v1 := r.Group("/api/v1", gate)

	walletHandler := NewWalletHandler(deps.WalletSvc)
	wallet := v1.Group("/wallet")
	{
		wallet.GET("/balance", rl("wallet"), middleware.RequirePermission(domain.PermissionRead), walletHandler.GetBalance)
		wallet.GET("/transactions", rl("wallet"), middleware.RequirePermission(domain.PermissionRead), walletHandler.ListTransactions)
	}

	depositHandler := NewDepositHandler(deps.DepositSvc)
	deposits := v1.Group("/deposits")
	{
		deposits.POST("", rl("deposits"), middleware.RequirePermission(domain.PermissionDeposit), depositHandler.Initiate)
		deposits.GET("/:reference", rl("wallet"), middleware.RequirePermission(domain.PermissionRead), depositHandler.CheckStatus)
	}

	transferHandler := NewTransferHandler(deps.TransferSvc)
	v1.POST("/transfers", rl("transfers"), middleware.RequirePermission(domain.PermissionTransfer), transferHandler.Transfer)

	// --- Key management (session-only; API keys cannot manage keys) ---
	keyHandler := NewAPIKeyHandler(deps.APIKeySvc)
	keys := v1.Group("/keys", middleware.RequireSession())
	{
		keys.POST("", rl("keys"), keyHandler.Create)
		keys.GET("", rl("keys"), keyHandler.List)
		keys.DELETE("/:id", rl("keys"), keyHandler.Revoke)
		keys.POST("/:id/rollover", rl("keys"), keyHandler.Rollover)
	}

	return r
}
