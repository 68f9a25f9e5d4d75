// Command server serves invoice PDFs for stored orders over HTTP.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	invoicingapp "github.com/erp/invoicer/internal/application/invoicing"
	"github.com/erp/invoicer/internal/infrastructure/cache"
	"github.com/erp/invoicer/internal/infrastructure/config"
	"github.com/erp/invoicer/internal/infrastructure/logger"
	"github.com/erp/invoicer/internal/infrastructure/persistence"
	"github.com/erp/invoicer/internal/infrastructure/printing"
	"github.com/erp/invoicer/internal/infrastructure/storage"
	"github.com/erp/invoicer/internal/infrastructure/telemetry"
	"github.com/erp/invoicer/internal/interfaces/http/handler"
	"github.com/erp/invoicer/internal/interfaces/http/middleware"
	"github.com/erp/invoicer/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		Service:    cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(baseLog)
	}()

	ctx := context.Background()

	tel, err := telemetry.Setup(ctx, telemetry.Settings{
		ServiceName:     cfg.Telemetry.ServiceName,
		ServiceVersion:  version,
		Endpoint:        cfg.Telemetry.CollectorEndpoint,
		Insecure:        cfg.Telemetry.Insecure,
		TracesEnabled:   cfg.Telemetry.Enabled,
		SamplingRatio:   cfg.Telemetry.SamplingRatio,
		MetricsEnabled:  cfg.Telemetry.MetricsEnabled,
		MetricsInterval: cfg.Telemetry.MetricsInterval,
		LogsEnabled:     cfg.Telemetry.Enabled,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			baseLog.Error("Telemetry shutdown incomplete", zap.Error(err))
		}
	}()
	log := tel.Logs.Bridge(baseLog)

	invoiceMetrics, err := telemetry.NewInvoiceMetrics(tel.Meter.Meter("invoicer"))
	if err != nil {
		log.Fatal("Failed to create invoice metrics", zap.Error(err))
	}

	log.Info("Starting invoicer",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Database
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled
	dbTracing.LogFullSQL = cfg.Telemetry.DBLogFullSQL
	dbTracing.DBName = cfg.Database.DBName
	if cfg.Telemetry.DBSlowQueryThresh > 0 {
		dbTracing.SlowQueryThresh = cfg.Telemetry.DBSlowQueryThresh
	}

	db, err := persistence.NewDatabase(ctx, &cfg.Database,
		persistence.WithLogger(log, logger.MapGormLogLevel(cfg.Log.Level)),
		persistence.WithTracing(dbTracing),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Document cache
	docCache, err := cache.NewDocumentCache(ctx, cfg,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(true),
	)
	if err != nil {
		log.Fatal("Failed to initialize invoice cache", zap.Error(err))
	}
	if docCache != nil {
		defer func() {
			if err := docCache.Close(); err != nil {
				log.Error("Error closing invoice cache", zap.Error(err))
			}
		}()
	}

	archive, err := newArchive(ctx, cfg, log)
	if err != nil {
		log.Fatal("Failed to initialize invoice archive", zap.Error(err))
	}

	// Rendering
	inv := cfg.Invoice
	layout := printing.DefaultInvoiceLayout()
	layout.Page = printing.PageGeometryByName(inv.PageSize)
	layout.StoreName = inv.StoreName
	layout.StoreAddressLines = inv.StoreAddressLines
	layout.StoreEmail = inv.StoreEmail
	layout.CurrencySymbol = inv.CurrencySymbol
	layout.DateLayout = inv.DateLayout
	layout.StrictEllipsis = inv.StrictEllipsisFit

	builder := printing.NewDocumentBuilder(&printing.DocumentBuilderConfig{
		Layout: layout,
		Images: printing.NewImageEmbedder(&printing.ImageEmbedderConfig{
			FetchTimeout: inv.FetchTimeout,
			MaxBytes:     inv.MaxImageBytes,
			Footprint:    layout.ImageFootprint,
			Logger:       log,
		}),
		FetchConcurrency:  inv.FetchConcurrency,
		GenerationTimeout: inv.GenerationTimeout,
		Logger:            log,
	})

	opts := []invoicingapp.ServiceOption{
		invoicingapp.WithLogger(log),
		invoicingapp.WithMetrics(invoiceMetrics),
	}
	if docCache != nil {
		opts = append(opts, invoicingapp.WithCache(docCache, inv.CacheTTL))
	}
	if archive != nil {
		opts = append(opts, invoicingapp.WithArchive(archive))
	}
	invoiceService := invoicingapp.NewInvoiceService(
		persistence.NewGormOrderRepository(db.DB),
		builder,
		opts...,
	)

	// HTTP
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	tracingCfg := middleware.DefaultTracingConfig()
	tracingCfg.ServiceName = cfg.Telemetry.ServiceName
	tracingCfg.Enabled = cfg.Telemetry.Enabled

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig()),
		middleware.TracingWithConfig(tracingCfg),
		middleware.SpanErrorMarker(),
		middleware.TracingAttributeInjector(),
		middleware.HTTPMetrics(tel.Meter),
	)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", handler.HealthCheckFunc(db.Ping))
	if docCache != nil {
		systemHandler.AddCheck("cache", handler.HealthCheckFunc(docCache.Ping))
	}
	engine.GET("/health", systemHandler.Health)

	router.NewRouter(engine).
		Register(handler.InvoiceRoutes(handler.NewInvoiceHandler(invoiceService))).
		Register(handler.SystemRoutes(systemHandler)).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exited gracefully")
}

// newArchive builds the configured archive backend, or nil for "none"
func newArchive(ctx context.Context, cfg *config.Config, log *zap.Logger) (printing.ArchiveStorage, error) {
	switch cfg.Invoice.ArchiveBackend {
	case config.ArchiveBackendS3:
		archive, err := storage.NewS3InvoiceArchive(&cfg.Storage, storage.WithLogger(log))
		if err != nil {
			return nil, err
		}
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		log.Info("Archiving invoices to object storage", zap.String("bucket", archive.Bucket()))
		return archive, nil
	case config.ArchiveBackendFileSystem:
		archive, err := printing.NewFileSystemArchive(&printing.FileSystemArchiveConfig{
			BasePath: cfg.Invoice.ArchivePath,
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		log.Info("Archiving invoices to the file system", zap.String("path", cfg.Invoice.ArchivePath))
		return archive, nil
	default:
		return nil, nil
	}
}
