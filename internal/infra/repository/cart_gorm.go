package repository

import (
	"context"

	"smartcommerce/internal/domain/model"
	repo "smartcommerce/internal/repository"

	"gorm.io/gorm"
)

type CartItemGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartItemGormRepository(db *gorm.DB) *CartItemGormRepository {
	return &CartItemGormRepository{db: db}
}

// 明細を取得
func (r *CartItemGormRepository) Find(ctx context.Context, userID int64, productID int64) (model.CartItem, error) {
	var item model.CartItem

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&item).Error

	if isNotFound(err) {
		return model.CartItem{}, repo.ErrNotFound
	}
	if err != nil {
		return model.CartItem{}, err
	}
	return item, nil
}

// カート明細を商品情報付きで一覧取得
// 削除済みの商品は出さない
func (r *CartItemGormRepository) ListLinesByUser(ctx context.Context, userID int64) ([]model.CartLine, error) {
	var lines []model.CartLine

	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select("cart_items.product_id, products.name, products.description, products.price, cart_items.quantity, " +
			"COALESCE(inventories.quantity_available, 0) AS quantity_available").
		Joins("JOIN products ON products.id = cart_items.product_id AND products.deleted_at IS NULL").
		Joins("LEFT JOIN inventories ON inventories.product_id = cart_items.product_id").
		Where("cart_items.user_id = ?", userID).
		Order("cart_items.added_at asc").
		Order("cart_items.product_id asc").
		Scan(&lines).Error
	if err != nil {
		return []model.CartLine{}, err
	}
	if lines == nil {
		lines = []model.CartLine{}
	}
	return lines, nil
}

func (r *CartItemGormRepository) Create(ctx context.Context, item model.CartItem) error {
	return r.db.WithContext(ctx).Create(&item).Error
}

// 明細の数量を更新
func (r *CartItemGormRepository) UpdateQuantity(ctx context.Context, userID int64, productID int64, qty int64) error {
	res := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Update("quantity", qty)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// 明細を削除
func (r *CartItemGormRepository) Delete(ctx context.Context, userID int64, productID int64) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&model.CartItem{})

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

// ユーザーの明細を全削除
func (r *CartItemGormRepository) DeleteByUser(ctx context.Context, userID int64) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.CartItem{}).Error
}

func (r *CartItemGormRepository) CountByUser(ctx context.Context, userID int64) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&model.CartItem{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
