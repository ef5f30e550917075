package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/pipeline-velocity/backend/internal/api/handlers"
	"github.com/pipeline-velocity/backend/internal/cache/redis"
	"github.com/pipeline-velocity/backend/internal/factpack"
	"github.com/pipeline-velocity/backend/internal/insight"
	"github.com/pipeline-velocity/backend/internal/llm"
	"github.com/pipeline-velocity/backend/internal/metrics"
	"github.com/pipeline-velocity/backend/internal/middleware/ratelimit"
	"github.com/pipeline-velocity/backend/internal/middleware/security"
	"github.com/pipeline-velocity/backend/internal/middleware/validation"
	"github.com/pipeline-velocity/backend/internal/storage/sqlite"
	"github.com/pipeline-velocity/backend/pkg/config"
	appLogger "github.com/pipeline-velocity/backend/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Pipeline Velocity API Server")

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	if err := sqliteClient.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	var cacheClient *redis.Client
	if cfg.Analysis.CacheEnabled {
		cacheClient, err = redis.NewClient(cfg.Redis.Host, cfg.Redis.Port, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			appLogger.Warn("Redis unavailable, running without response cache", zap.Error(err))
			cacheClient = nil
		} else {
			defer cacheClient.Close()
		}
	}

	llmClient := llm.NewClient(cfg.LLM)
	orchestrator := insight.NewOrchestrator(llmClient, cfg.Analysis.MaxInsights)
	builder := factpack.NewBuilder(cfg.Analysis)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Org-ID",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{}))

	limiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Server.RequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer limiter.Stop()
	app.Use(limiter.Middleware())

	app.Use(validation.Middleware(validation.Config{
		MaxRecordsPerRequest: cfg.Analysis.MaxRecordsPerRequest,
		Logger:               appLogger.GetLogger(),
	}))

	analysisHandler := handlers.NewAnalysisHandler(builder, orchestrator, sqliteClient, cacheClient, cfg.Analysis)
	runsHandler := handlers.NewRunsHandler(sqliteClient)

	api := app.Group("/api/v1")

	api.Post("/insights", analysisHandler.HandleGenerateInsights)
	api.Post("/factpack", analysisHandler.HandleBuildFactPack)
	api.Get("/runs", runsHandler.HandleListRuns)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	api.Get("/ready", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ready",
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
