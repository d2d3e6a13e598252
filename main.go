package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CrossPostAPI/config"
	"CrossPostAPI/database"
	"CrossPostAPI/handlers"
	"CrossPostAPI/middleware"
	"CrossPostAPI/publishers"
	"CrossPostAPI/services"
	"CrossPostAPI/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		utils.Warnf("Could not load .env: %v", err)
	}

	cfg := config.Load()
	utils.SetLogLevel(cfg.LogLevel)
	defer utils.SyncLogger()

	cipher, err := utils.NewTokenCipher(cfg.TokenEncryptionKey)
	if err != nil {
		utils.Errorf("Failed to initialize token encryption: %v", err)
		os.Exit(1)
	}
	if cfg.TokenEncryptionKey == "" {
		utils.Warnf("TOKEN_ENCRYPTION_KEY is not set; platform credentials are stored unencrypted")
	}

	store, err := newStore(cfg, cipher)
	if err != nil {
		utils.Errorf("Failed to connect to database: %v", err)
		os.Exit(1)
	}
	defer store.Close()

	locker, closeLocker := newLocker(cfg)
	defer closeLocker()

	registry := services.NewPlatformRegistry(store)
	dispatcher := services.NewDeliveryDispatcher(store, newPublishers(cfg), cfg.DeliveryTimeout)
	crossPosts := services.NewCrossPostService(store)
	analytics := services.NewAnalyticsRollup(store, locker)
	authService := services.NewAuthService(cfg.JWTSecret)

	scheduler := services.NewScheduler(dispatcher, analytics, store)
	if err := scheduler.Start(cfg.ScheduleInterval, cfg.AnalyticsSchedule); err != nil {
		utils.Errorf("Failed to start scheduler: %v", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	handler := handlers.NewHandler(registry, dispatcher, crossPosts, analytics, store)
	r := setupRoutes(cfg, handler, authService, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		utils.Infof("Server starting on port %s...", cfg.Port)
		printEndpoints()
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.Errorf("Server error: %v", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	utils.Infof("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.DeliveryTimeout+5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		utils.Errorf("Graceful shutdown failed: %v", err)
	}
}

func newStore(cfg *config.Config, cipher *utils.TokenCipher) (services.Store, error) {
	if cfg.UseMemoryStore() {
		utils.Warnf("Using in-memory store; data is lost on restart")
		return database.NewMemoryStore(), nil
	}
	db, err := database.NewDatabase(cfg.DatabaseURL, cipher)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// newLocker shares analytics locks through Redis when REDIS_URL is set.
func newLocker(cfg *config.Config) (services.Locker, func()) {
	if cfg.RedisURL == "" {
		return services.NewLocalLocker(), func() {}
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		utils.Errorf("Invalid REDIS_URL, falling back to in-process locks: %v", err)
		return services.NewLocalLocker(), func() {}
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		utils.Warnf("Redis unreachable at startup: %v", err)
	}

	return services.NewRedisLocker(client, cfg.AnalyticsLockTTL), func() { client.Close() }
}

func newPublishers(cfg *config.Config) *publishers.Registry {
	if cfg.Publisher == "relay" && cfg.RelayBaseURL != "" {
		utils.Infof("Delivering through relay at %s", cfg.RelayBaseURL)
		return publishers.NewRelayRegistry(cfg.RelayBaseURL, cfg.RelayRPS)
	}
	if cfg.Publisher == "relay" {
		utils.Warnf("PUBLISHER=relay without RELAY_BASE_URL; using demo publishers")
	}
	return publishers.NewDemoRegistry(cfg.DemoLatency)
}

func setupRoutes(cfg *config.Config, h *handlers.Handler, authService *services.AuthService, limiter *middleware.RateLimiter) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestLogger())
	r.Use(limiter.Limit())
	r.Use(middleware.BodyLimit(cfg.MaxBodySize))

	h.Register(r, middleware.AuthMiddleware(authService))

	// Preflight requests match no route, so CORS wraps the router.
	return middleware.CORS(middleware.DefaultCORSConfig(cfg.AllowedOrigins))(r)
}

func printEndpoints() {
	utils.Infof("Endpoints available:")
	utils.Infof("  GET    /health                        - Health check")
	utils.Infof("  GET    /api/platforms                 - List linked platforms (auth)")
	utils.Infof("  POST   /api/platforms                 - Add platform (auth)")
	utils.Infof("  DELETE /api/platforms/{id}            - Remove platform (auth)")
	utils.Infof("  GET    /api/platforms/{kind}/status   - Connection status (auth)")
	utils.Infof("  POST   /api/platforms/{id}/connect    - Attach credentials (auth)")
	utils.Infof("  PUT    /api/platforms/{id}/metrics    - Sync cached metrics (auth)")
	utils.Infof("  GET    /api/platforms/limits          - Content limits (auth)")
	utils.Infof("  POST   /api/crossposts                - Publish or schedule cross-post (auth)")
	utils.Infof("  GET    /api/crossposts                - List cross-posts (auth)")
	utils.Infof("  GET    /api/crossposts/{id}           - Get cross-post with results (auth)")
	utils.Infof("  DELETE /api/crossposts/{id}           - Delete cross-post (auth)")
	utils.Infof("  POST   /api/analytics/recompute       - Recompute today's analytics (auth)")
	utils.Infof("  GET    /api/analytics/latest          - Latest analytics snapshot (auth)")
	utils.Infof("  GET    /api/analytics/history?days=N  - Analytics history (auth)")
}
