package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-ledger/api/swagger"
	"github.com/noah-isme/campus-ledger/internal/handler"
	"github.com/noah-isme/campus-ledger/internal/middleware"
	"github.com/noah-isme/campus-ledger/internal/repository"
	"github.com/noah-isme/campus-ledger/internal/service"
	"github.com/noah-isme/campus-ledger/internal/store/open"
	"github.com/noah-isme/campus-ledger/pkg/cache"
	"github.com/noah-isme/campus-ledger/pkg/config"
	"github.com/noah-isme/campus-ledger/pkg/jobs"
	"github.com/noah-isme/campus-ledger/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-ledger/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-ledger/pkg/middleware/requestid"
)

// @title Campus Ledger API
// @version 1.0.0
// @description Fee and attendance ledger for the college management app
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

	ctx := context.Background()

	ledgerStore, closeStore, err := open.Store(ctx, cfg, logr)
	if err != nil {
		logr.Fatal("failed to open ledger store", zap.Error(err))
	}
	defer closeStore()

	var metricsSvc *service.MetricsService
	if cfg.Metrics.Enabled {
		metricsSvc = service.NewMetricsService()
	}

	var paymentLock service.PaymentLock
	if cfg.Ledger.PaymentLockEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Fatal("failed to connect redis for payment locks", zap.Error(err))
		}
		defer redisClient.Close() //nolint:errcheck
		paymentLock = service.NewRedisPaymentLock(repository.NewLockRepository(redisClient, "campus-ledger:"), cfg.Ledger.PaymentLockTTL, logr)
	}

	validate := service.NewValidator()

	feeSvc := service.NewFeeService(
		repository.NewFeeRepository(ledgerStore),
		repository.NewPaymentRepository(ledgerStore),
		validate,
		logr,
		service.FeeServiceConfig{
			PaymentLock:         paymentLock,
			Metrics:             metricsSvc,
			OverdueSweepRetries: cfg.Ledger.OverdueSweepRetries,
		},
	)
	attendanceSvc := service.NewAttendanceService(repository.NewAttendanceRepository(ledgerStore), validate, logr, nil, metricsSvc)
	exportSvc := service.NewExportService(logr, nil, nil, nil, nil)

	if interval := cfg.Ledger.OverdueSweepInterval; interval > 0 {
		sweep := jobs.NewPeriodic("overdue-sweep", func(ctx context.Context) error {
			_, err := feeSvc.UpdateOverdueFees(ctx)
			return err
		}, jobs.PeriodicConfig{
			Interval:   interval,
			MaxRetries: 2,
			RetryDelay: 5 * time.Second,
			Timeout:    time.Minute,
			Logger:     logr,
		})
		sweep.Start(ctx)
		defer sweep.Stop()
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ready", "store": cfg.Store.Driver})
	})
	if metricsSvc != nil {
		r.GET("/metrics", metricsHandler.Prometheus)
	}
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.Routes{
		Fees:       handler.NewFeeHandler(feeSvc),
		Attendance: handler.NewAttendanceHandler(attendanceSvc),
		Reports:    handler.NewReportHandler(feeSvc, attendanceSvc, exportSvc, validate),
		Metrics:    metricsHandler,
		Tokens:     service.NewTokenVerifier(cfg.JWT.Secret),
		Audit:      logr,
	}.Register(r.Group(cfg.APIPrefix))

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env, "store", cfg.Store.Driver)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
