package usecase

import (
	"context"
	"strings"

	"smartcommerce/internal/domain/model"
	repo "smartcommerce/internal/repository"
)

// 商品レビュー。書いた本人だけが更新・削除できる（管理者はDeleteAny）
type ReviewUsecase struct {
	reviews  repo.ReviewRepository
	products repo.ProductRepository
}

func NewReviewUsecase(reviews repo.ReviewRepository, products repo.ProductRepository) *ReviewUsecase {
	return &ReviewUsecase{reviews: reviews, products: products}
}

type ReviewInput struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func validateReview(in ReviewInput) (ReviewInput, error) {
	if in.Rating < model.ReviewRatingMin || in.Rating > model.ReviewRatingMax {
		return ReviewInput{}, NewBusinessRule("rating must be between %d and %d", model.ReviewRatingMin, model.ReviewRatingMax)
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if in.Comment == "" {
		return ReviewInput{}, NewBusinessRule("comment required")
	}
	if len(in.Comment) > 2000 {
		return ReviewInput{}, NewBusinessRule("comment too long")
	}
	return in, nil
}

func (u *ReviewUsecase) ensureProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return NewBusinessRule("invalid product id")
	}
	if _, err := u.products.FindByID(ctx, productID); err != nil {
		return fromRepo(err, "product", productID)
	}
	return nil
}

func (u *ReviewUsecase) Create(ctx context.Context, userID, productID int64, in ReviewInput) (model.Review, error) {
	if userID <= 0 {
		return model.Review{}, NewBusinessRule("invalid user id")
	}
	in, err := validateReview(in)
	if err != nil {
		return model.Review{}, err
	}
	if err := u.ensureProduct(ctx, productID); err != nil {
		return model.Review{}, err
	}

	rv, err := u.reviews.Create(ctx, model.Review{
		ProductID: productID,
		UserID:    userID,
		Rating:    in.Rating,
		Comment:   in.Comment,
	})
	if err != nil {
		return model.Review{}, NewPersistence(err)
	}
	return rv, nil
}

func (u *ReviewUsecase) Get(ctx context.Context, reviewID int64) (model.Review, error) {
	if reviewID <= 0 {
		return model.Review{}, NewBusinessRule("invalid review id")
	}
	rv, err := u.reviews.FindByID(ctx, reviewID)
	if err != nil {
		return model.Review{}, fromRepo(err, "review", reviewID)
	}
	return rv, nil
}

// 他人のレビューは存在しない扱い
func (u *ReviewUsecase) getOwned(ctx context.Context, userID, reviewID int64) (model.Review, error) {
	rv, err := u.Get(ctx, reviewID)
	if err != nil {
		return model.Review{}, err
	}
	if rv.UserID != userID {
		return model.Review{}, NewNotFound("review %d not found", reviewID)
	}
	return rv, nil
}

func (u *ReviewUsecase) ListByProduct(ctx context.Context, productID int64) ([]model.Review, error) {
	if err := u.ensureProduct(ctx, productID); err != nil {
		return []model.Review{}, err
	}
	items, err := u.reviews.ListByProductID(ctx, productID)
	if err != nil {
		return []model.Review{}, NewPersistence(err)
	}
	return items, nil
}

func (u *ReviewUsecase) ListByUser(ctx context.Context, userID int64) ([]model.Review, error) {
	items, err := u.reviews.ListByUserID(ctx, userID)
	if err != nil {
		return []model.Review{}, NewPersistence(err)
	}
	return items, nil
}

func (u *ReviewUsecase) List(ctx context.Context, limit, offset int) ([]model.Review, error) {
	if limit < 1 || limit > 200 {
		return []model.Review{}, NewBusinessRule("invalid limit")
	}
	if offset < 0 {
		return []model.Review{}, NewBusinessRule("invalid offset")
	}
	items, err := u.reviews.List(ctx, limit, offset)
	if err != nil {
		return []model.Review{}, NewPersistence(err)
	}
	return items, nil
}

func (u *ReviewUsecase) Update(ctx context.Context, userID, reviewID int64, in ReviewInput) (model.Review, error) {
	in, err := validateReview(in)
	if err != nil {
		return model.Review{}, err
	}
	rv, err := u.getOwned(ctx, userID, reviewID)
	if err != nil {
		return model.Review{}, err
	}

	rv.Rating = in.Rating
	rv.Comment = in.Comment
	if err := u.reviews.Update(ctx, rv); err != nil {
		return model.Review{}, fromRepo(err, "review", reviewID)
	}
	return u.Get(ctx, reviewID)
}

func (u *ReviewUsecase) Delete(ctx context.Context, userID, reviewID int64) error {
	if _, err := u.getOwned(ctx, userID, reviewID); err != nil {
		return err
	}
	return fromRepo(u.reviews.Delete(ctx, reviewID), "review", reviewID)
}

// 管理者用。消したレビューを返す（監査ログ用）
func (u *ReviewUsecase) DeleteAny(ctx context.Context, reviewID int64) (model.Review, error) {
	rv, err := u.Get(ctx, reviewID)
	if err != nil {
		return model.Review{}, err
	}
	if err := u.reviews.Delete(ctx, reviewID); err != nil {
		return model.Review{}, fromRepo(err, "review", reviewID)
	}
	return rv, nil
}

func (u *ReviewUsecase) Summary(ctx context.Context, productID int64) (model.RatingSummary, error) {
	if err := u.ensureProduct(ctx, productID); err != nil {
		return model.RatingSummary{}, err
	}
	s, err := u.reviews.Summary(ctx, productID)
	if err != nil {
		return model.RatingSummary{}, NewPersistence(err)
	}
	return s, nil
}
