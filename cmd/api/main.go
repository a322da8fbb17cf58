package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"smartcommerce/internal/cache"
	"smartcommerce/internal/config"
	"smartcommerce/internal/handler"
	"smartcommerce/internal/infra/db"
	infraRepo "smartcommerce/internal/infra/repository"
	"smartcommerce/internal/logger"
	"smartcommerce/internal/metrics"
	"smartcommerce/internal/server"
	"smartcommerce/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "smartcommerce",
	Short:         "在庫・カート・注文API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// smartcommerce serve
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "HTTPサーバーを起動する",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), cfg)
	},
}

// smartcommerce migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "テーブルを作成・更新する",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		gormDB, err := db.Connect(cfg)
		if err != nil {
			return err
		}
		if err := db.Migrate(gormDB); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.L.Info("migrated", "driver", cfg.DBDriver)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "読み込む.envファイル")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
}

// .envは無くてもよい（コンテナでは環境変数で渡す）
func loadConfig() (config.Config, error) {
	if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
		return config.Config{}, fmt.Errorf("load %s: %w", envFile, err)
	}
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	logger.Init(cfg.GoEnv)
	return cfg, nil
}

func serve(ctx context.Context, cfg config.Config) error {
	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	//Repository（GORM実装）
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	categoryRepo := infraRepo.NewCategoryGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	inventoryRepo := infraRepo.NewInventoryGormRepository(gormDB)
	cartRepo := infraRepo.NewCartItemGormRepository(gormDB)
	orderRepo := infraRepo.NewOrderGormRepository(gormDB)
	orderItemRepo := infraRepo.NewOrderItemGormRepository(gormDB)
	txm := infraRepo.NewTxManagerGorm(gormDB)

	productCache := cache.NewProductCache(productRepo,
		cache.WithTTL(cfg.CatalogCacheTTL),
		cache.WithRecorder(metrics.NewCacheRecorder("products")),
	)

	//Usecase
	productUC := usecase.NewProductUsecase(txm, productRepo, categoryRepo, productCache)
	inventoryUC := usecase.NewInventoryUsecase(txm, inventoryRepo, productCache, cfg.LowStockThreshold)
	cartUC := usecase.NewCartUsecase(txm, cartRepo)
	orderUC := usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo, productCache, metrics.OrderRecorder{})
	auditUC := usecase.NewAuditUsecase(infraRepo.NewAuditLogGormRepository(gormDB))
	reviewUC := usecase.NewReviewUsecase(infraRepo.NewReviewGormRepository(gormDB), productRepo)

	//Handler
	e := server.New(cfg, logger.L, userRepo, server.Handlers{
		Products:      handler.NewProductHandler(productUC),
		AdminProducts: handler.NewAdminProductHandler(productUC, inventoryUC, auditUC),
		Cart:          handler.NewCartHandler(cartUC),
		Orders:        handler.NewOrderHandler(orderUC),
		AdminOrders:   handler.NewAdminOrderHandler(orderUC, auditUC),
		Audit:         handler.NewAuditHandler(auditUC),
		Reviews:       handler.NewReviewHandler(reviewUC, auditUC),
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	logger.L.Info("listening", "addr", addr, "env", cfg.GoEnv)
	if err := server.Run(ctx, e, addr); err != nil {
		return err
	}
	logger.L.Info("shut down")
	return nil
}
