package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/angelmondragon/thriftlane-backend/pkg/config"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Client owns the pooled connection shared by every repository.
type Client struct {
	conn *gorm.DB
}

// Options selects the dialect used by New.
type Options struct {
	UseSQLite bool
}

const sqliteParams = "?_foreign_keys=on&_busy_timeout=5000"

// New opens the store named by cfg: Postgres by default, a single-writer
// sqlite file when opts.UseSQLite is set.
func New(ctx context.Context, cfg config.DBConfig, opts Options, logg *logger.Logger) (*Client, error) {
	var dialector gorm.Dialector
	switch {
	case opts.UseSQLite && cfg.SQLitePath == "":
		return nil, errors.New("sqlite path is required")
	case opts.UseSQLite:
		dialector = sqlite.Open(cfg.SQLitePath + sqliteParams)
	case cfg.DSN == "":
		return nil, errors.New("database DSN is required")
	default:
		dialector = postgres.New(postgres.Config{DSN: cfg.DSN, PreferSimpleProtocol: true})
	}

	var queryLog gormlogger.Interface = gormlogger.Discard
	if logg != nil {
		queryLog = newQueryLogger(logg, cfg.SlowQueryThreshold)
	}
	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 queryLog,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}

	pool, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("sql handle: %w", err)
	}
	tunePool(pool, cfg, opts.UseSQLite)

	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("ping %s: %w", dialector.Name(), err)
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "dialect", dialector.Name()), "db.connected")
	}
	return &Client{conn: conn}, nil
}

// Wrap adopts an already opened connection.
func Wrap(conn *gorm.DB) *Client {
	return &Client{conn: conn}
}

func tunePool(pool *sql.DB, cfg config.DBConfig, singleWriter bool) {
	if singleWriter {
		pool.SetMaxOpenConns(1)
	} else {
		if cfg.MaxOpenConns > 0 {
			pool.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		if cfg.MaxIdleConns > 0 {
			pool.SetMaxIdleConns(cfg.MaxIdleConns)
		}
	}
	if cfg.ConnMaxLifetime > 0 {
		pool.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		pool.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}

func (c *Client) DB() *gorm.DB {
	return c.conn
}

// SQL exposes the database/sql pool for goose.
func (c *Client) SQL() (*sql.DB, error) {
	return c.conn.DB()
}

// Dialect is "postgres" or "sqlite".
func (c *Client) Dialect() string {
	return c.conn.Dialector.Name()
}

func (c *Client) Ping(ctx context.Context) error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.PingContext(ctx)
}

func (c *Client) Close() error {
	pool, err := c.conn.DB()
	if err != nil {
		return err
	}
	return pool.Close()
}

// WithTx runs fn in one transaction. An error or panic from fn rolls it back;
// the panic is re-raised.
func (c *Client) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return c.conn.WithContext(ctx).Transaction(fn)
}
