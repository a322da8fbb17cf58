package repository

import (
	"context"

	"smartcommerce/internal/domain/model"
)

// ユーザーの取得を約束。見つからないときはErrNotFound
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	// IDからユーザーを1件取得する。
	FindByID(ctx context.Context, userID int64) (*model.User, error)
	Exists(ctx context.Context, userID int64) (bool, error)
}
