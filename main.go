package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"

	"marketpulse/cache"
	"marketpulse/config"
	"marketpulse/database"
	"marketpulse/handlers"
	"marketpulse/insights"
	"marketpulse/intelligence"
	"marketpulse/jobs"
	"marketpulse/mlclient"
	"marketpulse/routes"
)

var configPath = flag.String("config", "", "path to an optional YAML config file")

func main() {
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.Connect(ctx, cfg.Database.URL, logger)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer pool.Close()
	store := database.NewStore(pool)

	analysisCache, err := cache.New(cfg.Cache, logger)
	if err != nil {
		logger.Error("cache unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = analysisCache.Close() }()

	params := intelligence.ParamsFromConfig(cfg.Intelligence)
	gateway := mlclient.New(cfg.MLService, logger)
	if !gateway.Enabled() {
		logger.Info("forecasting service not configured, all forecasts are rule-based")
	}

	orch := intelligence.NewOrchestrator(params, gateway, logger)
	service := intelligence.NewService(orch, store, analysisCache, logger)

	var reportOpts []intelligence.ReporterOption
	if cfg.Gemini.APIKey != "" {
		narrator, err := insights.NewGeminiNarrator(ctx, cfg.Gemini, logger)
		if err != nil {
			logger.Warn("gemini narrator disabled", "error", err)
		} else {
			defer func() { _ = narrator.Close() }()
			reportOpts = append(reportOpts, intelligence.WithNarrator(narrator))
		}
	}
	reporter := intelligence.NewReporter(params, store, gateway, logger, reportOpts...)

	refresher := jobs.NewRefresher(store, service, cfg.Jobs.RatePerSecond, params.MinForecastDays, logger)
	scheduler := jobs.NewScheduler(refresher, cfg.Jobs.Timeout, logger)
	if err := scheduler.Start(cfg.Jobs.Schedule); err != nil {
		logger.Error("invalid refresh schedule", "schedule", cfg.Jobs.Schedule, "error", err)
		os.Exit(1)
	}
	defer scheduler.Stop()

	h := handlers.NewIntelligenceHandler(store, service, orch, reporter, scheduler, logger)

	app := fiber.New()

	// Add CORS middleware
	app.Use(cors.New())

	// Setup routes
	routes.SetupRoutes(app, h, []byte(cfg.Auth.JWTSecret))

	go func() {
		<-ctx.Done()
		logger.Info("shutting down")
		if err := app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); err != nil {
			logger.Error("shutdown failed", "error", err)
		}
	}()

	logger.Info("serving", "addr", cfg.Server.Addr)
	if err := app.Listen(cfg.Server.Addr); err != nil {
		logger.Error("server stopped", "error", err)
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(cfg.Format) == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
