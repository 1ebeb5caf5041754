package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"regapi/docs"
	"regapi/internal/config"
	"regapi/internal/database"
	"regapi/internal/database/migration"
	handlers "regapi/internal/http/handler"
	"regapi/internal/http/middleware"
	"regapi/internal/logger"
	"regapi/internal/otel"
	"regapi/internal/repository/postgres"
	"regapi/internal/service"
	"regapi/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Student Registration API
// @version 1.0
// @description Student registration records and their uploaded files.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	log, err := logger.New(cfg.LogMode, cfg.Location())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	if err := run(cfg, log); err != nil {
		log.Fatal("server_failed", zap.Error(err))
	}
}

func run(cfg *config.AppConfig, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			log.Warn("tracing_shutdown_failed", zap.Error(err))
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	blobs, err := newBlobStore(cfg, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}

	repo := postgres.NewStudentPostgres(db)
	svc := service.NewStudentService(repo, blobs, log,
		service.WithPresignExpiry(cfg.Storage.PresignExpiry()),
	)

	metrics, err := middleware.NewPrometheusMiddleware(prometheus.DefaultRegisterer, "/health", "/healthz")
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.UploadMaxMB * 1024 * 1024,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware(otelfiber.WithNext(func(c *fiber.Ctx) bool {
		return c.Path() == "/metrics"
	})))
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.Logger(log))
	app.Use(metrics.Handler())

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

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

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, svc)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info("server_listening", zap.String("addr", addr), zap.String("storage_driver", cfg.Storage.Driver))
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Info("server_shutting_down")
	return app.ShutdownWithTimeout(shutdownTimeout)
}

// newBlobStore builds the configured backend and wraps it with the key
// layout and operation metrics.
func newBlobStore(cfg *config.AppConfig, reg prometheus.Registerer) (storage.BlobStore, error) {
	var (
		backend storage.Storage
		err     error
	)
	switch cfg.Storage.Driver {
	case "minio":
		// Initialize reusable S3-compatible object storage client (MinIO-supported)
		backend, err = storage.NewMinIO(cfg.MinIO)
		if err != nil {
			return nil, fmt.Errorf("initialize object storage: %w", err)
		}
	case "memory":
		backend = storage.NewMemory()
	default:
		return nil, errors.New("unknown STORAGE_DRIVER " + cfg.Storage.Driver)
	}

	blobs, err := storage.NewInstrumentedBlobStore(storage.NewBlobStore(backend, cfg.Storage.Prefix), reg)
	if err != nil {
		return nil, fmt.Errorf("register storage metrics: %w", err)
	}
	return blobs, nil
}
