package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"scrapdeal/docs" // swagger docs
	"scrapdeal/internal/auth"
	"scrapdeal/internal/cache"
	"scrapdeal/internal/config"
	"scrapdeal/internal/db"
	"scrapdeal/internal/handler"
	"scrapdeal/internal/logger"
	"scrapdeal/internal/repository"
	"scrapdeal/internal/router"
	"scrapdeal/internal/service"
	"scrapdeal/internal/storage"
)

// @title Scrapdeal Marketplace API
// @version 1.0
// @description Scrap marketplace API with seller listings, buyer orders, and JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log := logger.Init(cfg.IsProduction())

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		log.Error("database init", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := db.Migrate(gormDB, cfg.ResetDB); err != nil {
		log.Error("auto-migrate", slog.String("error", err.Error()))
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer func() { _ = cacheClient.Close() }()
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.Warn("redis unreachable, continuing without cache", slog.String("error", err.Error()))
	}

	images, err := storage.NewDiskStore(cfg.UploadDir, cfg.MaxUploadMB)
	if err != nil {
		log.Error("upload dir", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize repositories
	repos := repository.NewRepositories(gormDB)
	tx := repository.NewTxManager(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(repos.Users, jwtService, tokenStore)
	productService := service.NewProductService(repos, tx, cacheClient, images)
	orderService := service.NewOrderService(repos, tx, cacheClient)

	e := echo.New()
	e.HideBanner = true
	router.Register(e, cfg, router.Handlers{
		Auth:    handler.NewAuthHandler(authService),
		Product: handler.NewProductHandler(productService, images),
		Order:   handler.NewOrderHandler(orderService),
		Health:  handler.NewHealthHandler(gormDB, cacheClient),
	}, jwtService, tokenStore)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}
	log.Info("swagger documentation available", slog.String("url", swaggerURL(cfg)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		addr := ":" + cfg.ServerPort
		log.Info("server starting", slog.String("addr", addr), slog.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server start", slog.String("error", err.Error()))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
