package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/millops/backend/internal/config"
	"github.com/millops/backend/internal/delivery/http"
	"github.com/millops/backend/internal/inference"
	"github.com/millops/backend/internal/observability"
	"github.com/millops/backend/internal/repository"
	"github.com/millops/backend/internal/service"
)

func main() {
	// Configuration
	cfg, err := config.Load(config.ConfigDir())
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log, closeLog := config.SetupLogger(cfg.LogFile, cfg.SlogLevel())
	defer closeLog()
	slog.SetDefault(log)

	// Tracing
	shutdownTracing, err := observability.InitTracing(context.Background(), observability.TracingConfig{
		Service:     "millops-backend",
		Environment: cfg.Env,
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		log.Error("failed to init tracing", "error", err)
		os.Exit(1)
	}

	// Database connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dataRepo, closeRepo, err := repository.Open(ctx, cfg.DatabaseURL, log)
	if err != nil {
		log.Error("failed to open repository", "error", err)
		os.Exit(1)
	}
	defer closeRepo()

	// Model artifacts, loaded once
	src, err := artifactSource(cfg)
	if err != nil {
		log.Error("failed to configure model source", "error", err)
		os.Exit(1)
	}
	models := inference.LoadModels(ctx, src, log)

	// Dependency Injection: Services
	engine := inference.NewEngine(models, log)
	dashboardSvc := service.NewDashboardService(dataRepo, engine, service.DashboardConfig{
		RiskWindow:       cfg.RiskWindow,
		ProductionWindow: cfg.ProductionWindow,
		SupplierWindow:   cfg.SupplierWindow,
		StaleAfter:       cfg.StaleAfter,
	}, log)

	// Fiber App
	app := fiber.New(fiber.Config{
		AppName:      "MillOps API v1.0",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorHandler: http.ErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${method} ${path} (${latency})\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Routes
	http.SetupRoutes(app, dashboardSvc)

	// Graceful shutdown
	go func() {
		log.Info("server starting", "port", cfg.Port, "env", cfg.Env)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(5 * time.Second); err != nil {
		log.Warn("server forced to shutdown", "error", err)
	}
	dashboardSvc.WaitBackground()

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Warn("failed to flush traces", "error", err)
	}
	log.Info("server exited gracefully")
}

// artifactSource picks the bucket when MODELS_BUCKET is set, otherwise MODELS_DIR
func artifactSource(cfg *config.Config) (inference.ArtifactSource, error) {
	if !cfg.UseBucket() {
		return inference.DirSource{Dir: cfg.ModelsDir}, nil
	}
	return inference.NewBucketSource(inference.BucketConfig{
		Endpoint:  cfg.MinioEndpoint,
		AccessKey: cfg.MinioAccessKey,
		SecretKey: cfg.MinioSecretKey,
		UseSSL:    cfg.MinioUseSSL,
		Bucket:    cfg.ModelsBucket,
		Prefix:    cfg.ModelsPrefix,
	})
}
