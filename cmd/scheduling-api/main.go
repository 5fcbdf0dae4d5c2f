package main

import (
	"context"
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

	_ "github.com/neurobridge/scheduling-api/api/swagger"
	"github.com/neurobridge/scheduling-api/internal/handler"
	"github.com/neurobridge/scheduling-api/internal/middleware"
	"github.com/neurobridge/scheduling-api/internal/repository"
	"github.com/neurobridge/scheduling-api/internal/service"
	"github.com/neurobridge/scheduling-api/pkg/cache"
	"github.com/neurobridge/scheduling-api/pkg/config"
	"github.com/neurobridge/scheduling-api/pkg/database"
	"github.com/neurobridge/scheduling-api/pkg/lock"
	"github.com/neurobridge/scheduling-api/pkg/logger"
	corsmiddleware "github.com/neurobridge/scheduling-api/pkg/middleware/cors"
	reqidmiddleware "github.com/neurobridge/scheduling-api/pkg/middleware/requestid"
)

// @title NeuroBridge Scheduling API
// @version 1.0.0
// @description Appointment scheduling and availability reconciliation for the NeuroBridge marketplace.
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
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	validate := validator.New()

	appointmentRepo := repository.NewAppointmentRepository(db)
	ruleRepo := repository.NewAvailabilityRuleRepository(db)
	blockRepo := repository.NewBlockRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	metricsSvc := service.NewMetricsService()

	auditSvc := service.NewAuditService(auditRepo, cfg.Audit, logr)
	auditSvc.Start(ctx)
	defer auditSvc.Stop()

	pinSvc := service.NewPinService(appointmentRepo, auditSvc, metricsSvc, cfg.Pin, logr)
	availabilitySvc := service.NewAvailabilityService(ruleRepo, appointmentRepo, cfg.Booking, validate, logr)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, blockRepo, pinSvc,
		lock.NewLocker(redisClient), auditSvc, metricsSvc, cfg.Booking, validate, logr)
	blockSvc := service.NewBlockService(blockRepo, auditSvc, validate, logr)
	exportSvc := service.NewExportService(appointmentRepo, logr)

	availabilityHandler := handler.NewAvailabilityHandler(availabilitySvc, metricsSvc)
	appointmentHandler := handler.NewAppointmentHandler(appointmentSvc, pinSvc)
	blockHandler := handler.NewBlockHandler(blockSvc)
	exportHandler := handler.NewExportHandler(exportSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc, db)

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
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		api.GET("/availability", availabilityHandler.Resolve)
		api.GET("/educators/:educatorId/availability-rules", availabilityHandler.ListRules)
		api.POST("/educators/:educatorId/availability-rules", availabilityHandler.CreateRule)
		api.PUT("/availability-rules/:ruleId", availabilityHandler.UpdateRule)
		api.DELETE("/availability-rules/:ruleId", availabilityHandler.DeactivateRule)

		api.POST("/appointments", appointmentHandler.Propose)
		api.GET("/appointments", appointmentHandler.List)
		api.GET("/appointments/:id", appointmentHandler.Get)
		api.POST("/appointments/:id/confirm", appointmentHandler.Confirm)
		api.POST("/appointments/:id/complete", appointmentHandler.Complete)
		api.POST("/appointments/:id/cancel", appointmentHandler.Cancel)
		api.POST("/appointments/:id/reset", appointmentHandler.Reset)
		api.POST("/appointments/:id/pin/validate", appointmentHandler.ValidatePin)
		api.POST("/appointments/:id/pin/reissue", appointmentHandler.ReissuePin)

		api.POST("/blocks", blockHandler.Create)
		api.DELETE("/blocks/:id", blockHandler.Remove)
		api.GET("/educators/:educatorId/blocks", blockHandler.ListByEducator)

		if cfg.Exports.Enabled {
			api.GET("/educators/:educatorId/schedule/export", exportHandler.Schedule)
		}
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
