package db

import (
	"smartcommerce/internal/domain/model"

	"gorm.io/gorm"
)

// テーブル作成・更新
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Category{},
		&model.Product{},
		&model.Inventory{},
		&model.InventoryAdjustment{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
		&model.Review{},
		&model.AuditLog{},
	)
}
