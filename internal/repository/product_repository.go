package repository

import (
	"context"
	"errors"

	"smartcommerce/internal/domain/model"
)

var ErrNotFound = errors.New("not found")

// 商品の永続化（保存・取得）だけを約束。
// 取得系はinventoriesの数量を結合して返す。
type ProductRepository interface {
	// 削除されていない全商品（id降順）
	ListAll(ctx context.Context) ([]model.Product, error)
	FindByID(ctx context.Context, id int64) (model.Product, error)

	Create(ctx context.Context, p model.Product) (model.Product, error)
	Update(ctx context.Context, p model.Product) error
	SoftDelete(ctx context.Context, id int64) error
}

// カテゴリ
type CategoryRepository interface {
	Create(ctx context.Context, c model.Category) (model.Category, error)
	FindByID(ctx context.Context, id int64) (model.Category, error)
	List(ctx context.Context) ([]model.Category, error)

	// 大文字小文字を区別せずに名前で探す
	FindByName(ctx context.Context, name string) (model.Category, error)
	Update(ctx context.Context, c model.Category) error
	Delete(ctx context.Context, id int64) error

	// 削除されていない所属商品の数
	CountProducts(ctx context.Context, id int64) (int64, error)
}
