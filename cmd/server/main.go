package main

import (
	"context"   // context package is needed for Redis operations and shutdown
	"errors"    // errors package is needed to detect server close
	"net/http"  // HTTP server
	"os"        // Process signals
	"os/signal" // Signal notification
	"syscall"   // Termination signals
	"time"      // Shutdown deadline

	"prism/internal/api"        // Custom package for API handlers
	"prism/internal/cache"      // Ledger read cache
	"prism/internal/config"     // Custom package for configuration
	"prism/internal/db"         // Database setup
	"prism/internal/directory"  // Account directory
	"prism/internal/ledger"     // Ledger service
	"prism/internal/repository" // Ledger persistence

	"github.com/gin-gonic/gin"                                  // Gin web framework
	"github.com/prometheus/client_golang/prometheus"            // Metrics registry
	"github.com/prometheus/client_golang/prometheus/collectors" // Runtime collectors
	"github.com/redis/go-redis/v9"                              // Redis client
	"github.com/sirupsen/logrus"                                // Logrus for structured logging
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if cfg.IsProd {
		logrus.SetFormatter(&logrus.JSONFormatter{}) // Machine readable logs in production
	}
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to the database
	database, err := db.Open(cfg.DSN())
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err) // Fatal error if DB connection fails
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr, // Redis server address
		Password: cfg.RedisPass, // Redis password
		DB:       cfg.RedisDB,   // Redis database number
	})

	// Test Redis connection
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Metrics registry with process and Go runtime collectors
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Ledger service over MySQL, fronted by the Redis cache
	opts := ledger.Options{
		Logger:    logrus.StandardLogger(),     // Structured logger
		Metrics:   ledger.NewMetrics(registry), // Operation metrics
		OpTimeout: cfg.LedgerOpTimeout,         // Per-operation deadline
	}
	if cfg.CacheTTL > 0 {
		opts.Cache = cache.NewLedgers(redisClient, cfg.CacheTTL) // Read cache, off when CACHE_TTL is zero
	}
	users := directory.NewGorm(database) // Account directory over the users table
	svc := ledger.NewService(repository.NewGormStore(database), users, opts)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Periodic balance reconciliation
	go ledger.NewSweeper(svc, cfg.ReconcileInterval, cfg.ReconcileRepair).Run(ctx)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	r := api.NewRouter(api.Server{
		Config:  cfg,         // Application configuration
		DB:      database,    // User storage
		Redis:   redisClient, // Admin listing cache
		Ledger:  svc,         // Token ledger
		Metrics: registry,    // Metrics endpoint
		Wallets: users,       // Profile wallet writes
	})
	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	srv := &http.Server{Addr: ":" + cfg.AppPort, Handler: r, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		logrus.Info("Server running on " + cfg.AppPort) // Log server start
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("server failed: %v", err)
		}
	}()

	<-ctx.Done()
	logrus.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("graceful shutdown failed")
	}
	if err := redisClient.Close(); err != nil {
		logrus.WithError(err).Warn("closing redis client")
	}
}
