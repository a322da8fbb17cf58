package usecase

import (
	"context"
	"errors"

	"smartcommerce/internal/domain/model"
	repo "smartcommerce/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジックです。
// 数量の確認は在庫行をロックしてから行うので、同じ商品の同時追加でも合算が失われない。
type CartUsecase struct {
	tx        repo.TransactionManager
	cartItems repo.CartItemRepository
}

func NewCartUsecase(tx repo.TransactionManager, cartItems repo.CartItemRepository) *CartUsecase {
	return &CartUsecase{tx: tx, cartItems: cartItems}
}

// カートのまとめ
type CartSummary struct {
	Items []model.CartLine `json:"items"`
	Count int64            `json:"count"`
	Total decimal.Decimal  `json:"total"`
}

// カートに追加（同一商品は数量加算）。在庫確認は合算後の数量で行う
func (u *CartUsecase) AddOrMerge(ctx context.Context, userID int64, productID int64, quantity int64) (model.CartItem, error) {
	if userID <= 0 {
		return model.CartItem{}, NewBusinessRule("invalid user id")
	}
	if productID <= 0 {
		return model.CartItem{}, NewBusinessRule("invalid product id")
	}
	if quantity <= 0 {
		return model.CartItem{}, NewBusinessRule("quantity must be positive")
	}

	var out model.CartItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := ensureUser(ctx, r, userID); err != nil {
			return err
		}
		if _, err := r.Products().FindByID(ctx, productID); err != nil {
			return fromRepo(err, "product", productID)
		}

		// 在庫行ロック
		inv, err := r.Inventory().LockByProductID(ctx, productID)
		if err != nil {
			return fromRepo(err, "inventory for product", productID)
		}

		var existing int64
		item, err := r.CartItems().Find(ctx, userID, productID)
		switch {
		case err == nil:
			existing = item.Quantity
		case errors.Is(err, repo.ErrNotFound):
		default:
			return NewPersistence(err)
		}

		merged := existing + quantity
		if merged > inv.QuantityAvailable {
			return NewInsufficientStock("insufficient stock for product %d: in cart %d, requested %d, available %d",
				productID, existing, quantity, inv.QuantityAvailable)
		}

		if existing > 0 {
			if err := r.CartItems().UpdateQuantity(ctx, userID, productID, merged); err != nil {
				return fromRepo(err, "cart item for product", productID)
			}
		} else {
			if err := r.CartItems().Create(ctx, model.CartItem{
				UserID:    userID,
				ProductID: productID,
				Quantity:  merged,
			}); err != nil {
				return NewPersistence(err)
			}
		}

		out, err = r.CartItems().Find(ctx, userID, productID)
		return fromRepo(err, "cart item for product", productID)
	})
	if err != nil {
		return model.CartItem{}, txError(err)
	}
	return out, nil
}

func (u *CartUsecase) Get(ctx context.Context, userID int64, productID int64) (model.CartItem, error) {
	item, err := u.cartItems.Find(ctx, userID, productID)
	if err != nil {
		return model.CartItem{}, fromRepo(err, "cart item for product", productID)
	}
	return item, nil
}

func (u *CartUsecase) ListForUser(ctx context.Context, userID int64) ([]model.CartLine, error) {
	if userID <= 0 {
		return []model.CartLine{}, NewBusinessRule("invalid user id")
	}
	lines, err := u.cartItems.ListLinesByUser(ctx, userID)
	if err != nil {
		return []model.CartLine{}, NewPersistence(err)
	}
	return lines, nil
}

// 数量変更。0以下はRemoveを使う
func (u *CartUsecase) SetQuantity(ctx context.Context, userID int64, productID int64, quantity int64) (model.CartItem, error) {
	if quantity <= 0 {
		return model.CartItem{}, NewBusinessRule("quantity must be positive; use remove to delete items")
	}

	var out model.CartItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if _, err := r.CartItems().Find(ctx, userID, productID); err != nil {
			return fromRepo(err, "cart item for product", productID)
		}

		inv, err := r.Inventory().LockByProductID(ctx, productID)
		if err != nil {
			return fromRepo(err, "inventory for product", productID)
		}
		if quantity > inv.QuantityAvailable {
			return NewInsufficientStock("insufficient stock for product %d: requested %d, available %d",
				productID, quantity, inv.QuantityAvailable)
		}

		if err := r.CartItems().UpdateQuantity(ctx, userID, productID, quantity); err != nil {
			return fromRepo(err, "cart item for product", productID)
		}
		out, err = r.CartItems().Find(ctx, userID, productID)
		return fromRepo(err, "cart item for product", productID)
	})
	if err != nil {
		return model.CartItem{}, txError(err)
	}
	return out, nil
}

// 無い明細の削除はNotFound
func (u *CartUsecase) Remove(ctx context.Context, userID int64, productID int64) error {
	if err := u.cartItems.Delete(ctx, userID, productID); err != nil {
		return fromRepo(err, "cart item for product", productID)
	}
	return nil
}

// 空でも成功
func (u *CartUsecase) Clear(ctx context.Context, userID int64) error {
	if err := u.cartItems.DeleteByUser(ctx, userID); err != nil {
		return NewPersistence(err)
	}
	return nil
}

func (u *CartUsecase) Count(ctx context.Context, userID int64) (int64, error) {
	n, err := u.cartItems.CountByUser(ctx, userID)
	if err != nil {
		return 0, NewPersistence(err)
	}
	return n, nil
}

// 現在の商品価格 × 数量の合計
func (u *CartUsecase) Total(ctx context.Context, userID int64) (decimal.Decimal, error) {
	lines, err := u.cartItems.ListLinesByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, NewPersistence(err)
	}
	return sumLines(lines), nil
}

func (u *CartUsecase) Summary(ctx context.Context, userID int64) (CartSummary, error) {
	lines, err := u.ListForUser(ctx, userID)
	if err != nil {
		return CartSummary{}, err
	}
	return CartSummary{
		Items: lines,
		Count: int64(len(lines)),
		Total: sumLines(lines),
	}, nil
}

func sumLines(lines []model.CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
