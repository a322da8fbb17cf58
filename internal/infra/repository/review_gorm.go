package repository

import (
	"context"

	"smartcommerce/internal/domain/model"
	repo "smartcommerce/internal/repository"

	"gorm.io/gorm"
)

type ReviewGormRepository struct {
	db *gorm.DB
}

func NewReviewGormRepository(db *gorm.DB) *ReviewGormRepository {
	return &ReviewGormRepository{db: db}
}

func (r *ReviewGormRepository) Create(ctx context.Context, rv model.Review) (model.Review, error) {
	if err := r.db.WithContext(ctx).Create(&rv).Error; err != nil {
		return model.Review{}, err
	}
	return rv, nil
}

func (r *ReviewGormRepository) FindByID(ctx context.Context, id int64) (model.Review, error) {
	var rv model.Review
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rv).Error
	if isNotFound(err) {
		return model.Review{}, repo.ErrNotFound
	}
	if err != nil {
		return model.Review{}, err
	}
	return rv, nil
}

func (r *ReviewGormRepository) ListByProductID(ctx context.Context, productID int64) ([]model.Review, error) {
	var items []model.Review
	if err := r.db.WithContext(ctx).Where("product_id = ?", productID).Order("id desc").Find(&items).Error; err != nil {
		return []model.Review{}, err
	}
	return items, nil
}

func (r *ReviewGormRepository) ListByUserID(ctx context.Context, userID int64) ([]model.Review, error) {
	var items []model.Review
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("id desc").Find(&items).Error; err != nil {
		return []model.Review{}, err
	}
	return items, nil
}

func (r *ReviewGormRepository) List(ctx context.Context, limit, offset int) ([]model.Review, error) {
	var items []model.Review
	err := r.db.WithContext(ctx).
		Order("id desc").
		Limit(limit).
		Offset(offset).
		Find(&items).Error
	if err != nil {
		return []model.Review{}, err
	}
	return items, nil
}

func (r *ReviewGormRepository) Update(ctx context.Context, rv model.Review) error {
	res := r.db.WithContext(ctx).Model(&model.Review{}).Where("id = ?", rv.ID).Updates(map[string]interface{}{
		"rating":  rv.Rating,
		"comment": rv.Comment,
	})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ReviewGormRepository) Delete(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Delete(&model.Review{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}

func (r *ReviewGormRepository) Summary(ctx context.Context, productID int64) (model.RatingSummary, error) {
	var row struct {
		Count   int64
		Average float64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Review{}).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS average").
		Where("product_id = ?", productID).
		Scan(&row).Error
	if err != nil {
		return model.RatingSummary{}, err
	}
	return model.RatingSummary{ProductID: productID, Count: row.Count, Average: row.Average}, nil
}
