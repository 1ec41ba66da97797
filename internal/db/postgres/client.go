package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/kailas-cloud/invoicedex/internal/db"
)

// Config holds connection parameters for the Postgres canonical store.
type Config struct {
	DSN string
}

// DB is a gorm handle over the invoice and mapping spec tables.
type DB struct {
	gorm *gorm.DB
}

// Open connects to Postgres. The handle is owned by the process entry point.
func Open(cfg Config) (*DB, error) {
	if cfg.DSN == "" {
		return nil, errors.New("dsn is required")
	}
	g, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return &DB{gorm: g}, nil
}

// Migrate creates or updates the tables.
func (d *DB) Migrate(ctx context.Context) error {
	if err := d.gorm.WithContext(ctx).AutoMigrate(&invoiceModel{}, &mappingSpecModel{}); err != nil {
		return wrap(err)
	}
	return nil
}

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return wrap(err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (d *DB) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for postgres: %w", ctx.Err())
		case <-ticker.C:
			if err := d.Ping(ctx); err == nil {
				return nil
			}
		}
	}
}

// Close releases the connection pool.
func (d *DB) Close() {
	if sqlDB, err := d.gorm.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func wrap(err error) error {
	return &db.Error{Op: db.OpQuery, Err: err}
}
