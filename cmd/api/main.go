package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	fibersession "github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"billed/docs"
	"billed/internal/config"
	"billed/internal/database"
	"billed/internal/database/migration"
	handlers "billed/internal/http/handler"
	"billed/internal/http/middleware"
	"billed/internal/logging"
	"billed/internal/metrics"
	"billed/internal/otel"
	"billed/internal/repository/postgres"
	"billed/internal/service"
	"billed/internal/session"
	"billed/internal/storage"
	"billed/internal/view"
)

// @title Billed API
// @version 1.0
// @description Expense report store: bills and their receipts.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()
	logger := logging.Setup(loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		fatal(logger, "tracing_init_failed", err)
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		fatal(logger, "database_connect_failed", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
		fatal(logger, "migration_failed", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		fatal(logger, "storage_init_failed", err)
	}

	billRepo := postgres.NewBillPostgres(db)
	billSvc := service.NewBillService(objStore, billRepo, service.Options{
		BaseURL:       cfg.BaseURL,
		PresignExpiry: time.Duration(cfg.MinIO.PresignExpirySec) * time.Second,
	})

	renderer, err := view.New()
	if err != nil {
		fatal(logger, "templates_invalid", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		fatal(logger, "metrics_init_failed", err)
	}
	billMetrics, err := metrics.NewBills(reg)
	if err != nil {
		fatal(logger, "metrics_init_failed", err)
	}

	sessions := fibersession.New(fibersession.Config{
		KeyLookup:      "cookie:" + cfg.Session.CookieName,
		Expiration:     time.Duration(cfg.Session.ExpirationSec) * time.Second,
		CookieSecure:   cfg.Session.CookieSecure,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// multipart overhead on top of the largest accepted receipt
		BodyLimit: cfg.UploadMaxBytes + 1<<20,
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics" || c.Path() == "/healthz"
	})))
	// JSON Logger middleware for structured request logs, inside the span
	app.Use(middleware.Logger(loc))
	app.Use(promMiddleware.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:             db,
		Bills:          billSvc,
		Sessions:       session.FiberOpener(sessions),
		Renderer:       renderer,
		Metrics:        billMetrics,
		Logger:         logger,
		UploadMaxBytes: int64(cfg.UploadMaxBytes),
	})

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	go func() {
		<-ctx.Done()
		logger.Info("shutting_down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("http_shutdown_failed", "error", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("tracing_shutdown_failed", "error", err)
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("listening", "addr", addr, "base_url", cfg.BaseURL)

	if err := app.Listen(addr); err != nil {
		fatal(logger, "server_failed", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}
