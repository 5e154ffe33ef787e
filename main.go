package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scanndine/auth"
	"scanndine/config"
	"scanndine/controller"
	"scanndine/database"
	"scanndine/logging"
	"scanndine/metrics"
	"scanndine/realtime"
	"scanndine/repository"
	"scanndine/route"
	"scanndine/service"
	"scanndine/telemetry"
	"scanndine/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "scanndine-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("info", "text").WithError(err).Fatal("load config")
	}
	log := logging.New(cfg.LogLevel, cfg.LogFormat)

	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		log.Info("Running in debug mode")
	}
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry := telemetry.Setup(ctx, serviceName, cfg.OTELEndpoint, cfg.OTELInsecure, log)
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(sctx)
	}()

	db, err := database.Open(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		log.WithError(err).Fatal("create uploads directory")
	}

	users := repository.NewUserRepository(db)
	menuRepo := repository.NewMenuRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	m := metrics.New()
	hub := realtime.NewHub(cfg.Origins(), log, m)
	go hub.Run(ctx)

	var relay *realtime.RedisRelay
	if cfg.RedisURL != "" {
		relay, err = realtime.NewRedisRelay(ctx, cfg.RedisURL, log)
		if err != nil {
			log.WithError(err).Warn("redis relay unavailable, order events stay local")
			relay = nil
		} else {
			defer relay.Close()
			go relay.Run(ctx, hub)
			log.Info("redis relay connected")
		}
	}
	notifier := realtime.NewNotifier(hub, relay, log)

	hasher := auth.NewPasswordHasher(cfg.BcryptCost)
	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.JWTRefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	images := utils.NewImageStore(cfg.UploadDir, cfg.PublicBaseURL)

	authSvc := service.NewAuthService(users, hasher, tokens, log)
	staffSvc := service.NewStaffService(users, repository.NewQueryRepository(db), authSvc, hasher, m, log)
	menuSvc := service.NewMenuService(menuRepo, images, log)
	tableSvc := service.NewTableService(repository.NewTableRepository(db), utils.RenderQR, cfg.FrontendBaseURL, log)
	orderSvc := service.NewOrderService(orderRepo, menuRepo, tableSvc, notifier, m, log)
	analyticsSvc := service.NewAnalyticsService(orderRepo)

	if err := authSvc.EnsureAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		log.WithError(err).Fatal("seed admin")
	}

	router := route.NewEngine(route.Options{
		Controllers: route.Controllers{
			Auth:     controller.NewAuthController(authSvc),
			Staff:    controller.NewStaffController(staffSvc),
			Category: controller.NewCategoryController(menuSvc),
			Item:     controller.NewItemController(menuSvc),
			Table:    controller.NewTableController(tableSvc),
			Order:    controller.NewOrderController(orderSvc, analyticsSvc, hub),
		},
		Gate:      utils.NewGate(tokens, users),
		Limiter:   utils.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst),
		Metrics:   m,
		DB:        db,
		UploadDir: images.Dir(),
		Origins:   cfg.Origins(),
		Log:       log,
	})
	log.Info("Routes configured successfully")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, serviceName),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		log.WithError(err).Error("graceful shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
}
