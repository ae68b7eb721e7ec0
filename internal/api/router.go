package api

import (
	"net/http" // HTTP status codes

	"prism/internal/config"     // Application configuration
	"prism/internal/directory"  // Account directory
	"prism/internal/ledger"     // Ledger service
	"prism/internal/middleware" // Custom package for middleware

	"github.com/gin-gonic/gin"                                // Gin web framework
	"github.com/prometheus/client_golang/prometheus"          // Metrics registry
	"github.com/prometheus/client_golang/prometheus/promhttp" // Metrics endpoint
	"github.com/redis/go-redis/v9"                            // Redis client
	"gorm.io/gorm"                                            // GORM ORM library
)

// Server holds everything the HTTP handlers depend on
type Server struct {
	Config  *config.Config      // Application configuration
	DB      *gorm.DB            // Database handle for users
	Redis   *redis.Client       // Cache for admin listings
	Ledger  *ledger.Service     // Token ledger
	Metrics prometheus.Gatherer // Source for /metrics, nil disables it
	Wallets WalletWriter        // Profile wallet writes, defaults to the GORM directory
}

// NewRouter registers every route on a gin engine
func NewRouter(s Server) *gin.Engine {
	if s.Wallets == nil {
		s.Wallets = directory.NewGorm(s.DB) // Same directory the ledger writes through
	}
	r := gin.New()                      // Gin router instance
	r.Use(gin.Logger(), gin.Recovery()) // Request logging and panic recovery

	// Liveness check
	r.GET("/health", func(c *gin.Context) {
		respond(c, http.StatusOK, "ok", nil)
	})
	// Prometheus scrape endpoint
	if s.Metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Metrics, promhttp.HandlerOpts{})))
	}

	apiGroup := r.Group("/api")
	auth := middleware.JWTAuthMiddleware(s.Config.JWTSecret) // Bearer token check

	// Auth routes
	apiGroup.POST("/auth/register", RegisterHandler(s.DB, s.Config.JWTSecret, s.Config.JWTExpiry)) // Registration endpoint
	apiGroup.POST("/auth/login", LoginHandler(s.DB, s.Config.JWTSecret, s.Config.JWTExpiry))       // Login endpoint
	apiGroup.GET("/users/me", auth, MeHandler(s.DB))                                               // Profile endpoint
	apiGroup.GET("/users/profile", auth, MeHandler(s.DB))                                          // Profile endpoint
	apiGroup.PUT("/users/profile", auth, UpdateProfileHandler(s.DB, s.Wallets))                    // Profile update
	apiGroup.PUT("/users/password", auth, ChangePasswordHandler(s.DB))                             // Password change

	// Token routes (protected by JWT)
	tokenGroup := apiGroup.Group("/tokens", auth)
	tokenGroup.GET("", GetTokenInfoHandler(s.Ledger))                             // Ledger of the caller
	tokenGroup.GET("/transactions", TransactionHistoryHandler(s.Ledger))          // Paginated history
	tokenGroup.POST("/airdrop", AirdropHandler(s.Ledger, s.Config.AirdropAmount)) // Airdrop endpoint
	tokenGroup.POST("/transfer", TransferHandler(s.Ledger))                       // Transfer endpoint
	tokenGroup.POST("/pay", PaymentHandler(s.Ledger))                             // Payment endpoint

	// Admin routes (protected, admin only)
	adminGroup := apiGroup.Group("/admin", auth, middleware.AdminOnlyMiddleware(s.DB))
	adminGroup.GET("/users", ListUsersHandler(s.DB, s.Redis, s.Config.CacheTTL))               // List users endpoint
	adminGroup.GET("/transactions", ListTransactionsHandler(s.DB, s.Redis, s.Config.CacheTTL)) // List transactions endpoint
	adminGroup.GET("/ledgers/reconcile", ReconcileHandler(s.Ledger))                           // Reconcile all ledgers
	adminGroup.POST("/ledgers/:accountId/repair", RepairHandler(s.Ledger))                     // Repair one ledger
	adminGroup.POST("/ledgers/:accountId/credit", AdminCreditHandler(s.Ledger))                // Credit one ledger

	return r
}
