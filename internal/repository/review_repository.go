package repository

import (
	"context"

	"smartcommerce/internal/domain/model"
)

// レビュー。一覧は新しい順
type ReviewRepository interface {
	Create(ctx context.Context, r model.Review) (model.Review, error)
	FindByID(ctx context.Context, id int64) (model.Review, error)
	ListByProductID(ctx context.Context, productID int64) ([]model.Review, error)
	ListByUserID(ctx context.Context, userID int64) ([]model.Review, error)
	List(ctx context.Context, limit, offset int) ([]model.Review, error)
	Update(ctx context.Context, r model.Review) error
	Delete(ctx context.Context, id int64) error

	// 件数と平均。レビューが無ければ0
	Summary(ctx context.Context, productID int64) (model.RatingSummary, error)
}
