package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/english-korat/ekls-api/api/swagger"
	"github.com/english-korat/ekls-api/internal/handler"
	"github.com/english-korat/ekls-api/internal/middleware"
	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/internal/repository"
	"github.com/english-korat/ekls-api/internal/service"
	"github.com/english-korat/ekls-api/pkg/cache"
	"github.com/english-korat/ekls-api/pkg/config"
	"github.com/english-korat/ekls-api/pkg/database"
	"github.com/english-korat/ekls-api/pkg/jobs"
	"github.com/english-korat/ekls-api/pkg/logger"
	corsmiddleware "github.com/english-korat/ekls-api/pkg/middleware/cors"
	reqidmiddleware "github.com/english-korat/ekls-api/pkg/middleware/requestid"
	"github.com/english-korat/ekls-api/pkg/storage"
)

// @title English Korat Learning System API
// @version 1.0.0
// @description Schedule, makeup-quota and cancellation workflow API
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to database", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, caching disabled", "error", err)
		redisClient = nil
	}

	reportStorage, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	cancellationRepo := repository.NewCancellationRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "ekls-api",
	})
	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, jobs.Options{
		Workers:    cfg.Notifications.Workers,
		BufferSize: cfg.Notifications.BufferSize,
		MaxRetries: cfg.Notifications.MaxRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
		Logger:     logr,
	}, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, sessionRepo, cacheRepo, auditRepo, validate, logr, cfg.Makeup)
	cancellationSvc := service.NewCancellationService(cancellationRepo, sessionRepo, scheduleRepo, studentRepo, notificationSvc, metricsSvc, cacheRepo, auditRepo, logr, cfg.Makeup)
	makeupSvc := service.NewMakeupService(sessionRepo, scheduleRepo, studentRepo, notificationSvc, metricsSvc, cacheRepo, auditRepo, logr, cfg.Makeup)
	reportSvc := service.NewReportService(scheduleRepo, reportStorage, signer, logr, cfg.Makeup, cfg.APIPrefix)

	authHandler := handler.NewAuthHandler(authSvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	cancellationHandler := handler.NewCancellationHandler(cancellationSvc)
	makeupHandler := handler.NewMakeupHandler(makeupSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(authSvc))

	staff := middleware.RequireRoles(models.RoleOwner, models.RoleAdmin, models.RoleTeacher)
	admin := middleware.RequireRoles(models.RoleOwner, models.RoleAdmin)

	schedules := authed.Group("/schedules")
	{
		schedules.GET("", scheduleHandler.List)
		schedules.GET("/:id", scheduleHandler.Get)
		schedules.GET("/:id/sessions", scheduleHandler.Sessions)
		schedules.GET("/:id/quota", scheduleHandler.Quota)
		schedules.POST("", admin, scheduleHandler.Create)
		schedules.POST("/preview", admin, scheduleHandler.Preview)
		schedules.PUT("/:id", admin, scheduleHandler.Update)
		schedules.PATCH("/:id/quota", admin, scheduleHandler.UpdateQuota)
	}

	sessions := authed.Group("/sessions")
	{
		sessions.GET("/needing-makeup", staff, makeupHandler.ListNeedingMakeup)
		sessions.POST("/:id/cancellation", staff, cancellationHandler.Request)
		sessions.POST("/:id/cancellation/approve", admin, cancellationHandler.Approve)
		sessions.POST("/:id/cancellation/reject", admin, cancellationHandler.Reject)
		sessions.POST("/:id/makeup", admin, makeupHandler.Create)
	}

	cancellations := authed.Group("/cancellations")
	{
		cancellations.GET("", staff, cancellationHandler.List)
		cancellations.POST("/bulk-approve", admin, cancellationHandler.BulkApprove)
	}

	reports := authed.Group("/reports")
	{
		reports.GET("/quota-usage", admin, reportHandler.QuotaUsage)
	}
	// Download authenticates via the signed token, not the JWT.
	api.GET("/reports/download", reportHandler.Download)

	notifications := authed.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.PATCH("/:id/read", notificationHandler.MarkRead)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	notificationSvc.Queue().Start(ctx)
	defer notificationSvc.Queue().Stop()

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
