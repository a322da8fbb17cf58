package repository

import (
	"context"
	"errors"

	"smartcommerce/internal/domain/model"
	repo "smartcommerce/internal/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryGormRepository struct {
	db *gorm.DB
}

func NewInventoryGormRepository(db *gorm.DB) *InventoryGormRepository {
	return &InventoryGormRepository{db: db}
}

func (r *InventoryGormRepository) Create(ctx context.Context, inv model.Inventory) error {
	return r.db.WithContext(ctx).Create(&inv).Error
}

func (r *InventoryGormRepository) FindByProductID(ctx context.Context, productID int64) (model.Inventory, error) {
	var inv model.Inventory
	err := r.db.WithContext(ctx).Where("product_id = ?", productID).First(&inv).Error
	if isNotFound(err) {
		return model.Inventory{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Inventory{}, err
	}
	return inv, nil
}

// 同じ商品の在庫を触る他のTxはcommitまで待たされる
func (r *InventoryGormRepository) LockByProductID(ctx context.Context, productID int64) (model.Inventory, error) {
	var inv model.Inventory
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("product_id = ?", productID).
		First(&inv).Error
	if isNotFound(err) {
		return model.Inventory{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Inventory{}, err
	}
	return inv, nil
}

// 在庫の現在値を設定
func (r *InventoryGormRepository) SetQuantity(ctx context.Context, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ?", productID).
		Update("quantity_available", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 在庫が足りるときだけ減らす。判定と減算は1文なので同時実行でもマイナスにならない
func (r *InventoryGormRepository) DecreaseIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ? AND quantity_available >= ?", productID, qty).
		Update("quantity_available", gorm.Expr("quantity_available - ?", qty))

	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	return true, nil
}

// 在庫戻し（キャンセル）
func (r *InventoryGormRepository) Increase(ctx context.Context, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Where("product_id = ?", productID).
		Update("quantity_available", gorm.Expr("quantity_available + ?", qty))

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 削除済み商品の在庫は一覧に出さない
func (r *InventoryGormRepository) active(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.Inventory{}).
		Joins("JOIN products ON products.id = inventories.product_id AND products.deleted_at IS NULL")
}

func (r *InventoryGormRepository) ListBelow(ctx context.Context, threshold int64) ([]model.Inventory, error) {
	var items []model.Inventory
	err := r.active(ctx).
		Where("inventories.quantity_available < ?", threshold).
		Order("inventories.product_id asc").
		Find(&items).Error
	if err != nil {
		return []model.Inventory{}, err
	}
	return items, nil
}

func (r *InventoryGormRepository) ListOutOfStock(ctx context.Context) ([]model.Inventory, error) {
	var items []model.Inventory
	err := r.active(ctx).
		Where("inventories.quantity_available = 0").
		Order("inventories.product_id asc").
		Find(&items).Error
	if err != nil {
		return []model.Inventory{}, err
	}
	return items, nil
}

func (r *InventoryGormRepository) ListAll(ctx context.Context) ([]model.Inventory, error) {
	var items []model.Inventory
	if err := r.active(ctx).Order("inventories.product_id asc").Find(&items).Error; err != nil {
		return []model.Inventory{}, err
	}
	return items, nil
}

// 調整履歴作成
func (r *InventoryGormRepository) CreateAdjustment(ctx context.Context, adj model.InventoryAdjustment) error {
	if err := r.db.WithContext(ctx).Create(&adj).Error; err != nil {
		return err
	}
	return nil
}

// 新しい順
func (r *InventoryGormRepository) ListAdjustments(ctx context.Context, productID int64, limit int) ([]model.InventoryAdjustment, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var items []model.InventoryAdjustment
	err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("id desc").
		Limit(limit).
		Find(&items).Error
	if err != nil {
		return []model.InventoryAdjustment{}, err
	}
	return items, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
