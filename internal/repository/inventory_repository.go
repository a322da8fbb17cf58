package repository

import (
	"context"

	"smartcommerce/internal/domain/model"
)

type InventoryRepository interface {
	// 商品作成時に1行作る
	Create(ctx context.Context, inv model.Inventory) error

	FindByProductID(ctx context.Context, productID int64) (model.Inventory, error)

	// 行ロック付きで取得（SELECT ... FOR UPDATE）
	LockByProductID(ctx context.Context, productID int64) (model.Inventory, error)

	// 在庫の現在値を設定
	SetQuantity(ctx context.Context, productID int64, qty int64) error

	// 在庫が足りるときだけ減算
	DecreaseIfEnough(ctx context.Context, productID int64, qty int64) (bool, error)

	// 在庫戻し（キャンセルなど）
	Increase(ctx context.Context, productID int64, qty int64) error

	// 数量がthreshold未満の行（product_id昇順）
	ListBelow(ctx context.Context, threshold int64) ([]model.Inventory, error)
	// 数量0の行（product_id昇順）
	ListOutOfStock(ctx context.Context) ([]model.Inventory, error)
	ListAll(ctx context.Context) ([]model.Inventory, error)

	// 調整履歴作成
	CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error
	ListAdjustments(ctx context.Context, productID int64, limit int) ([]model.InventoryAdjustment, error)
}
