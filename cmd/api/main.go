package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"docvault/internal/cache"
	"docvault/internal/config"
	"docvault/internal/database"
	"docvault/internal/database/migration"
	handlers "docvault/internal/http/handler"
	"docvault/internal/http/middleware"
	"docvault/internal/logger"
	"docvault/internal/otel"
	"docvault/internal/repository/postgres"
	"docvault/internal/service"
	"docvault/internal/storage"
)

// @title						DocVault API
// @version					1.0
// @BasePath					/
// @securityDefinitions.apikey	BearerAuth
// @in							header
// @name						Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log := logger.NewStdout(cfg.Location(), cfg.LogLevel)
	logger.Set(log)
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	shutdownTracing, err := otel.Init(ctx)
	if err != nil {
		log.Fatal("tracing_init_failed", zap.Error(err))
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		log.Fatal("database_connect_failed", zap.Error(err))
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, cfg.Database.Host); err != nil {
		log.Fatal("database_migration_failed", zap.Error(err))
	}

	store, err := storage.New(ctx, cfg.Storage, cfg.MinIO)
	if err != nil {
		log.Fatal("storage_init_failed", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
	}

	tokenCache, closeCache, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("token_cache_init_failed", zap.Error(err))
	}
	defer func() { _ = closeCache() }()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMw, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal("metrics_init_failed", zap.Error(err))
	}
	docMetrics, err := service.NewDocumentMetrics(reg)
	if err != nil {
		log.Fatal("metrics_init_failed", zap.Error(err))
	}

	userRepo := postgres.NewUserPostgres(db)
	tokenRepo := postgres.NewTokenPostgres(db)
	docRepo := postgres.NewDocumentPostgres(db)

	hasher := service.NewBcryptHasher(cfg.Auth.BcryptCost)
	authSvc := service.NewAuthService(userRepo, tokenRepo, tokenCache, hasher, service.AuthOptions{
		TokenTTL: cfg.Auth.TokenTTL,
		CacheTTL: cfg.Auth.TokenCacheTTL,
	})
	userSvc := service.NewUserService(userRepo, tokenRepo, tokenCache, hasher)
	docSvc := service.NewDocumentService(store, docRepo, service.DocumentOptions{
		MaxUploadBytes: cfg.Storage.MaxUploadBytes,
		DefaultOwnerID: cfg.Auth.DefaultOwnerID,
		SniffContent:   cfg.Storage.SniffContent,
		Metrics:        docMetrics,
	})

	app := handlers.NewApp(cfg.Storage.MaxUploadBytes)

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(promMw.Handler())

	handlers.RegisterRoutes(app, handlers.Deps{
		DB:        db,
		Documents: docSvc,
		Users:     userSvc,
		Auth:      authSvc,
		Gatherer:  reg,
		Swagger:   true,
	})

	go func() {
		addr := ":" + cfg.Port
		log.Info("server_starting", zap.String("addr", addr), zap.String("storage_driver", cfg.Storage.Driver))
		if err := app.Listen(addr); err != nil {
			log.Error("server_stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("server_shutting_down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("server_shutdown_failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing_shutdown_failed", zap.Error(err))
	}
}
