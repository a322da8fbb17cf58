package repository

import (
	"context"

	"smartcommerce/internal/domain/model"
)

type CartItemRepository interface {
	Find(ctx context.Context, userID int64, productID int64) (model.CartItem, error)
	// 商品情報を結合した明細（追加順）
	ListLinesByUser(ctx context.Context, userID int64) ([]model.CartLine, error)
	Create(ctx context.Context, item model.CartItem) error
	UpdateQuantity(ctx context.Context, userID int64, productID int64, qty int64) error
	Delete(ctx context.Context, userID int64, productID int64) error
	// 0件でもエラーにしない
	DeleteByUser(ctx context.Context, userID int64) error
	CountByUser(ctx context.Context, userID int64) (int64, error)
}
