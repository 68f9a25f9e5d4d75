// Package persistence resolves orders from PostgreSQL through GORM.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/invoicer/internal/infrastructure/config"
	"github.com/erp/invoicer/internal/infrastructure/logger"
	"github.com/erp/invoicer/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the database connection
type Database struct {
	DB *gorm.DB
}

// DatabaseOption configures NewDatabase
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	logger      *zap.Logger
	logLevel    gormlogger.LogLevel
	tracing     telemetry.DBTracingConfig
	prepareStmt bool
}

// WithLogger routes GORM logs through zap at the given level
func WithLogger(l *zap.Logger, level gormlogger.LogLevel) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = l
		o.logLevel = level
	}
}

// WithTracing installs otelgorm with cfg
func WithTracing(cfg telemetry.DBTracingConfig) DatabaseOption {
	return func(o *databaseOptions) { o.tracing = cfg }
}

// NewDatabase opens a pooled PostgreSQL connection and verifies it with a ping
func NewDatabase(ctx context.Context, cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		logger:      zap.NewNop(),
		logLevel:    gormlogger.Silent,
		tracing:     telemetry.DefaultDBTracingConfig(),
		prepareStmt: true,
	}
	for _, opt := range opts {
		opt(options)
	}

	db, err := open(postgres.Open(cfg.DSN()), options)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{DB: db}, nil
}

// open builds the GORM handle for a dialector. Read paths never write, so
// default transactions are skipped.
func open(dialector gorm.Dialector, options *databaseOptions) (*gorm.DB, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.NewGormLogger(options.logger, logger.GormConfig{
			Level:         options.logLevel,
			SlowThreshold: options.tracing.SlowQueryThresh,
		}),
		SkipDefaultTransaction: true,
		PrepareStmt:            options.prepareStmt,
	})
	if err != nil {
		return nil, err
	}
	if err := telemetry.RegisterDBTracing(db, options.tracing, options.logger); err != nil {
		return nil, fmt.Errorf("failed to register database tracing: %w", err)
	}
	return db, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}
