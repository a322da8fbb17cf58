package db

import (
	"fmt"
	"time"

	"smartcommerce/internal/config"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Options struct {
	MaxOpenConns int
	LogLevel     logger.LogLevel
}

// Connect は設定からDBに接続して *gorm.DB を返す。
func Connect(cfg config.Config) (*gorm.DB, error) {
	level := logger.Warn
	if cfg.IsProduction() {
		level = logger.Error
	}
	return Open(cfg.DBDriver, cfg.DSN(), Options{MaxOpenConns: cfg.DBMaxOpenConns, LogLevel: level})
}

// Open はdriverに応じたdialectorで接続し、プールとクエリ計測を設定する。
func Open(driver, dsn string, opts Options) (*gorm.DB, error) {
	dialector, maxOpen, err := buildDialector(driver, dsn, opts.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("db: build dialector: %w", err)
	}

	if opts.LogLevel == 0 {
		opts.LogLevel = logger.Silent
	}
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(opts.LogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("db: get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxOpen)
	sqlDB.SetConnMaxIdleTime(2 * time.Minute)
	if driver == DriverPostgres {
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("db: ping: %w", err)
	}

	if err := registerMetricsCallbacks(gdb); err != nil {
		return nil, fmt.Errorf("db: register callbacks: %w", err)
	}
	return gdb, nil
}

// sqliteは書き込みが直列なので接続は1本
func buildDialector(driver, dsn string, maxOpen int) (gorm.Dialector, int, error) {
	if maxOpen <= 0 {
		maxOpen = 25
	}
	switch driver {
	case DriverPostgres:
		// DSNはpgxで検証し、database/sqlのプールごとgormに渡す
		pgCfg, err := pgx.ParseConfig(dsn)
		if err != nil {
			return nil, 0, fmt.Errorf("parse postgres dsn: %w", err)
		}
		return postgres.New(postgres.Config{Conn: stdlib.OpenDB(*pgCfg)}), maxOpen, nil
	case DriverSQLite:
		return sqlite.Open(dsn), 1, nil
	default:
		return nil, 0, fmt.Errorf("unsupported DB_DRIVER %q (supported: postgres, sqlite)", driver)
	}
}
