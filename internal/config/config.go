package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	DBDriver       string // postgres / sqlite
	DatabaseURL    string // あればPOSTGRES_*より優先
	PostgresUser   string
	PostgresPass   string
	PostgresDB     string
	PostgresHost   string
	PostgresPort   int
	PostgresSSL    string
	SQLitePath     string
	DBMaxOpenConns int

	JWTSecret string // JWT署名シークレット

	GoEnv string // development / production

	CatalogCacheTTL   time.Duration // 商品キャッシュの有効期間
	LowStockThreshold int64         // 在庫少の既定しきい値
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8080"),

		DBDriver:     strings.ToLower(getenv("DB_DRIVER", "postgres")),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		PostgresUser: getenv("POSTGRES_USER", "postgres"),
		PostgresPass: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:   getenv("POSTGRES_DB", "smartcommerce"),
		PostgresHost: getenv("POSTGRES_HOST", "localhost"),
		PostgresSSL:  getenv("POSTGRES_SSLMODE", "disable"),
		SQLitePath:   getenv("SQLITE_PATH", "smartcommerce.db"),

		JWTSecret: os.Getenv("JWT_SECRET"),
		GoEnv:     getenv("GO_ENV", "development"),
	}

	var err error
	if cfg.PostgresPort, err = atoiOr("POSTGRES_PORT", 5432); err != nil {
		return Config{}, err
	}
	if cfg.DBMaxOpenConns, err = atoiOr("DB_MAX_OPEN_CONNS", 25); err != nil {
		return Config{}, err
	}
	threshold, err := atoiOr("LOW_STOCK_THRESHOLD", 10)
	if err != nil {
		return Config{}, err
	}
	cfg.LowStockThreshold = int64(threshold)

	cfg.CatalogCacheTTL = 5 * time.Minute
	if v := os.Getenv("CATALOG_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("CATALOG_CACHE_TTL must be a duration: %w", err)
		}
		cfg.CatalogCacheTTL = d
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.DBDriver != "postgres" && cfg.DBDriver != "sqlite" {
		return Config{}, fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", cfg.DBDriver)
	}
	if cfg.CatalogCacheTTL <= 0 {
		return Config{}, fmt.Errorf("CATALOG_CACHE_TTL must be positive")
	}
	if cfg.LowStockThreshold < 0 {
		return Config{}, fmt.Errorf("LOW_STOCK_THRESHOLD must be >= 0")
	}

	return cfg, nil
}

// 接続文字列
func (c Config) DSN() string {
	if c.DBDriver == "sqlite" {
		return c.SQLitePath
	}
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPass, c.PostgresDB, c.PostgresSSL,
	)
}

func (c Config) IsProduction() bool {
	return c.GoEnv == "production" || c.GoEnv == "prod"
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func atoiOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}
