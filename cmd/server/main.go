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

	"classifieds/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"classifieds/internal/auth"
	"classifieds/internal/cache"
	"classifieds/internal/config"
	"classifieds/internal/db"
	"classifieds/internal/handler"
	"classifieds/internal/logger"
	"classifieds/internal/metrics"
	"classifieds/internal/payment"
	"classifieds/internal/repository"
	"classifieds/internal/router"
	"classifieds/internal/service"
)

// @title Classifieds API
// @version 1.0
// @description Classifieds marketplace API with listings, sessions, and premium ad payments.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	cfg := config.Load()

	log := logger.Setup(os.Stdout, cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	gormDB, err := db.Open(cfg.DBDriver, cfg.DSN())
	if err != nil {
		return err
	}

	if cfg.ResetDB {
		log.Warn("RESET_DB set, dropping all tables")
		db.Reset(gormDB, log)
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, running without cache", slog.String("error", err.Error()))
	}
	cancelPing()

	userRepo := repository.NewUserRepository(gormDB)
	sessionRepo := repository.NewSessionRepository(gormDB)
	adRepo := repository.NewAdRepository(gormDB)
	txnRepo := repository.NewTransactionRepository(gormDB)

	if cfg.StripeAPIKey == "" {
		log.Warn("STRIPE_API_KEY is empty, checkout requests will fail")
	}
	gateway := payment.NewStripeGateway(cfg.StripeAPIKey, cfg.StripeWebhookSecret, nil)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)

	authService := service.NewAuthService(
		userRepo,
		sessionRepo,
		auth.NewTokenIssuer(cfg.JWTSecret),
		auth.NewSessionCache(cacheClient),
		auth.NewIdentityClient(cfg.IdentitySessionURL),
		collector,
	)
	listingService := service.NewListingService(adRepo, cacheClient, collector)
	paymentService := service.NewPaymentService(txnRepo, adRepo, gateway, cacheClient, collector, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestID())

	router.Register(
		e,
		cfg,
		log,
		collector,
		registry,
		authService,
		handler.NewAuthHandler(authService, cfg.CookieSecure),
		handler.NewAdHandler(listingService),
		handler.NewPaymentHandler(paymentService),
	)

	if cfg.SwaggerHost != "" {
		host := strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
		docs.SwaggerInfo.Host = host
		if strings.HasPrefix(cfg.SwaggerHost, "https://") {
			docs.SwaggerInfo.Schemes = []string{"https"}
		}
	}
	log.Info("swagger documentation available", slog.String("url", docs.SwaggerInfo.Schemes[0]+"://"+docs.SwaggerInfo.Host+"/swagger/index.html"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", slog.String("port", cfg.ServerPort))
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info("shutting down")
	return e.Shutdown(shutdownCtx)
}
