package usecase

import (
	"context"
	"errors"
	"strings"

	"smartcommerce/internal/cache"
	"smartcommerce/internal/domain/model"
	repo "smartcommerce/internal/repository"
	"smartcommerce/internal/sorter"

	"github.com/shopspring/decimal"
)

// 商品の読み取り口（キャッシュ）
type ProductCatalog interface {
	GetAll(ctx context.Context) ([]model.Product, error)
	GetByID(ctx context.Context, id int64) (model.Product, error)
	Invalidate()
	Stats() cache.Stats
}

type ProductUsecase struct {
	tx         repo.TransactionManager
	products   repo.ProductRepository
	categories repo.CategoryRepository
	catalog    ProductCatalog
}

// DI
func NewProductUsecase(
	tx repo.TransactionManager,
	products repo.ProductRepository,
	categories repo.CategoryRepository,
	catalog ProductCatalog,
) *ProductUsecase {
	return &ProductUsecase{
		tx:         tx,
		products:   products,
		categories: categories,
		catalog:    catalog,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page       int
	Limit      int
	Q          string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	Sort       string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

var (
	byProductID = sorter.By(func(p model.Product) int64 { return p.ID })
	byPrice     = sorter.Then(func(a, b model.Product) int { return a.Price.Cmp(b.Price) }, byProductID)
	byName      = sorter.Then(sorter.By(func(p model.Product) string { return strings.ToLower(p.Name) }), byProductID)
)

func productOrder(sort string) sorter.Compare[model.Product] {
	switch sort {
	case "price_asc":
		return byPrice
	case "price_desc":
		return sorter.Reverse(byPrice)
	case "name":
		return byName
	default:
		// new: 新しい順
		return sorter.Reverse(byProductID)
	}
}

// 一覧はキャッシュのスナップショットを絞り込んで並べる
func (u *ProductUsecase) ListProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewBusinessRule("invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewBusinessRule("invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewBusinessRule("q too long")
	}
	if in.MinPrice != nil && in.MinPrice.IsNegative() {
		return ProductListOutput{}, NewBusinessRule("min_price must be >= 0")
	}
	if in.MaxPrice != nil && in.MaxPrice.IsNegative() {
		return ProductListOutput{}, NewBusinessRule("max_price must be >= 0")
	}
	if in.MinPrice != nil && in.MaxPrice != nil && in.MinPrice.GreaterThan(*in.MaxPrice) {
		return ProductListOutput{}, NewBusinessRule("min_price must be <= max_price")
	}
	switch in.Sort {
	case "", "new", "price_asc", "price_desc", "name":
	default:
		return ProductListOutput{}, NewBusinessRule("invalid sort")
	}

	all, err := u.catalog.GetAll(ctx)
	if err != nil {
		return ProductListOutput{}, NewPersistence(err)
	}

	q := strings.ToLower(strings.TrimSpace(in.Q))
	matched := make([]model.Product, 0, len(all))
	for _, p := range all {
		if q != "" && !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		if in.CategoryID != nil && p.CategoryID != *in.CategoryID {
			continue
		}
		if in.MinPrice != nil && p.Price.LessThan(*in.MinPrice) {
			continue
		}
		if in.MaxPrice != nil && p.Price.GreaterThan(*in.MaxPrice) {
			continue
		}
		matched = append(matched, p)
	}
	matched = sorter.MergeSort(matched, productOrder(in.Sort))

	total := len(matched)
	start := (in.Page - 1) * in.Limit
	if start > total {
		start = total
	}
	end := start + in.Limit
	if end > total {
		end = total
	}

	return ProductListOutput{
		Items: matched[start:end],
		Total: int64(total),
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProduct(ctx context.Context, productID int64) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewBusinessRule("invalid product id")
	}
	p, err := u.catalog.GetByID(ctx, productID)
	if err != nil {
		return model.Product{}, fromRepo(err, "product", productID)
	}
	return p, nil
}

type CreateProductInput struct {
	Name            string
	Description     string
	Price           decimal.Decimal
	CategoryID      int64
	InitialQuantity int64
}

type UpdateProductInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	CategoryID  int64
}

func validateProduct(name string, price decimal.Decimal, categoryID int64) error {
	if strings.TrimSpace(name) == "" {
		return NewBusinessRule("name required")
	}
	if len(name) > 255 {
		return NewBusinessRule("name too long")
	}
	if price.IsNegative() {
		return NewBusinessRule("price must be >= 0")
	}
	if categoryID <= 0 {
		return NewBusinessRule("invalid category id")
	}
	return nil
}

// 商品と在庫行を同じTxで作る
func (u *ProductUsecase) CreateProduct(ctx context.Context, in CreateProductInput) (model.Product, error) {
	if err := validateProduct(in.Name, in.Price, in.CategoryID); err != nil {
		return model.Product{}, err
	}
	if in.InitialQuantity < 0 {
		return model.Product{}, NewBusinessRule("initial quantity must be >= 0")
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Categories().FindByID(ctx, in.CategoryID); err != nil {
			return fromRepo(err, "category", in.CategoryID)
		}

		p, err := r.Products().Create(ctx, model.Product{
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Price:       in.Price,
			CategoryID:  in.CategoryID,
		})
		if err != nil {
			return NewPersistence(err)
		}

		if err := r.Inventory().Create(ctx, model.Inventory{
			ProductID:         p.ID,
			QuantityAvailable: in.InitialQuantity,
		}); err != nil {
			return NewPersistence(err)
		}
		if in.InitialQuantity > 0 {
			if err := recordAdjustment(ctx, r.Inventory(), p.ID, in.InitialQuantity, model.AdjustReasonInitial, nil); err != nil {
				return err
			}
		}

		out, err = r.Products().FindByID(ctx, p.ID)
		return fromRepo(err, "product", p.ID)
	})
	if err != nil {
		return model.Product{}, txError(err)
	}

	u.catalog.Invalidate()
	return out, nil
}

// 数量は在庫側でしか変えない
func (u *ProductUsecase) UpdateProduct(ctx context.Context, productID int64, in UpdateProductInput) (model.Product, error) {
	if productID <= 0 {
		return model.Product{}, NewBusinessRule("invalid product id")
	}
	if err := validateProduct(in.Name, in.Price, in.CategoryID); err != nil {
		return model.Product{}, err
	}

	var out model.Product
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Categories().FindByID(ctx, in.CategoryID); err != nil {
			return fromRepo(err, "category", in.CategoryID)
		}
		if err := r.Products().Update(ctx, model.Product{
			ID:          productID,
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Price:       in.Price,
			CategoryID:  in.CategoryID,
		}); err != nil {
			return fromRepo(err, "product", productID)
		}

		var err error
		out, err = r.Products().FindByID(ctx, productID)
		return fromRepo(err, "product", productID)
	})
	if err != nil {
		return model.Product{}, txError(err)
	}

	u.catalog.Invalidate()
	return out, nil
}

// 論理削除。カートの明細は商品一覧と同じく表示から外れる
func (u *ProductUsecase) DeleteProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return NewBusinessRule("invalid product id")
	}
	if err := u.products.SoftDelete(ctx, productID); err != nil {
		return fromRepo(err, "product", productID)
	}
	u.catalog.Invalidate()
	return nil
}

func validateCategory(name, description string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", NewBusinessRule("name required")
	}
	if len(name) > 100 {
		return "", NewBusinessRule("name too long")
	}
	if len(description) > 500 {
		return "", NewBusinessRule("description too long")
	}
	return name, nil
}

// 同名（大文字小文字無視）のカテゴリが自分以外にあればエラー
func ensureCategoryNameFree(ctx context.Context, categories repo.CategoryRepository, name string, selfID int64) error {
	c, err := categories.FindByName(ctx, name)
	if errors.Is(err, repo.ErrNotFound) {
		return nil
	}
	if err != nil {
		return NewPersistence(err)
	}
	if c.ID != selfID {
		return NewBusinessRule("category %q already exists", name)
	}
	return nil
}

func (u *ProductUsecase) CreateCategory(ctx context.Context, name, description string) (model.Category, error) {
	name, err := validateCategory(name, description)
	if err != nil {
		return model.Category{}, err
	}

	var out model.Category
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := ensureCategoryNameFree(ctx, r.Categories(), name, 0); err != nil {
			return err
		}
		c, err := r.Categories().Create(ctx, model.Category{Name: name, Description: description})
		if err != nil {
			return NewPersistence(err)
		}
		out = c
		return nil
	})
	if err != nil {
		return model.Category{}, txError(err)
	}
	return out, nil
}

func (u *ProductUsecase) GetCategory(ctx context.Context, categoryID int64) (model.Category, error) {
	if categoryID <= 0 {
		return model.Category{}, NewBusinessRule("invalid category id")
	}
	c, err := u.categories.FindByID(ctx, categoryID)
	if err != nil {
		return model.Category{}, fromRepo(err, "category", categoryID)
	}
	return c, nil
}

// 名前と説明の更新
func (u *ProductUsecase) UpdateCategory(ctx context.Context, categoryID int64, name, description string) (model.Category, error) {
	if categoryID <= 0 {
		return model.Category{}, NewBusinessRule("invalid category id")
	}
	name, err := validateCategory(name, description)
	if err != nil {
		return model.Category{}, err
	}

	var out model.Category
	err = u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.Categories().FindByID(ctx, categoryID); err != nil {
			return fromRepo(err, "category", categoryID)
		}
		if err := ensureCategoryNameFree(ctx, r.Categories(), name, categoryID); err != nil {
			return err
		}
		if err := r.Categories().Update(ctx, model.Category{ID: categoryID, Name: name, Description: description}); err != nil {
			return fromRepo(err, "category", categoryID)
		}
		c, err := r.Categories().FindByID(ctx, categoryID)
		if err != nil {
			return fromRepo(err, "category", categoryID)
		}
		out = c
		return nil
	})
	if err != nil {
		return model.Category{}, txError(err)
	}

	u.catalog.Invalidate()
	return out, nil
}

// 商品が残っているカテゴリは消せない
func (u *ProductUsecase) DeleteCategory(ctx context.Context, categoryID int64) error {
	if categoryID <= 0 {
		return NewBusinessRule("invalid category id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		c, err := r.Categories().FindByID(ctx, categoryID)
		if err != nil {
			return fromRepo(err, "category", categoryID)
		}
		n, err := r.Categories().CountProducts(ctx, categoryID)
		if err != nil {
			return NewPersistence(err)
		}
		if n > 0 {
			return NewBusinessRule("cannot delete category %q: %d product(s) still belong to it", c.Name, n)
		}
		return fromRepo(r.Categories().Delete(ctx, categoryID), "category", categoryID)
	})
	if err != nil {
		return txError(err)
	}

	u.catalog.Invalidate()
	return nil
}

func (u *ProductUsecase) ListCategories(ctx context.Context) ([]model.Category, error) {
	items, err := u.categories.List(ctx)
	if err != nil {
		return []model.Category{}, NewPersistence(err)
	}
	return items, nil
}

func (u *ProductUsecase) CacheStats() cache.Stats {
	return u.catalog.Stats()
}

func (u *ProductUsecase) InvalidateCache() {
	u.catalog.Invalidate()
}

// 価格文字列の読み取り（handlerのクエリ用）
func ParsePrice(s string) (*decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, NewBusinessRule("invalid price %q", s)
	}
	return &d, nil
}
