package usecase

import (
	"context"
	"strings"

	"smartcommerce/internal/domain/model"
	repo "smartcommerce/internal/repository"
	"smartcommerce/internal/sorter"
)

// 在庫が変わったら商品キャッシュを捨てる（商品の表示に数量が入っているため）
type CacheInvalidator interface {
	Invalidate()
}

var byQuantity = sorter.By(func(inv model.Inventory) int64 { return inv.QuantityAvailable })

// 在庫台帳。数量の変更はすべてここか、同じヘルパーを使う注文処理を通る
type InventoryUsecase struct {
	tx               repo.TransactionManager
	inventory        repo.InventoryRepository
	cache            CacheInvalidator
	defaultThreshold int64
}

func NewInventoryUsecase(
	tx repo.TransactionManager,
	inventory repo.InventoryRepository,
	cache CacheInvalidator,
	defaultThreshold int64,
) *InventoryUsecase {
	return &InventoryUsecase{
		tx:               tx,
		inventory:        inventory,
		cache:            cache,
		defaultThreshold: defaultThreshold,
	}
}

func (u *InventoryUsecase) DefaultThreshold() int64 {
	return u.defaultThreshold
}

func (u *InventoryUsecase) GetByProduct(ctx context.Context, productID int64) (model.Inventory, error) {
	if productID <= 0 {
		return model.Inventory{}, NewBusinessRule("invalid product id")
	}
	inv, err := u.inventory.FindByProductID(ctx, productID)
	if err != nil {
		return model.Inventory{}, fromRepo(err, "inventory for product", productID)
	}
	return inv, nil
}

// 絶対値で設定（棚卸し・補充の補正用）
func (u *InventoryUsecase) SetQuantity(ctx context.Context, productID int64, newQuantity int64, reason string) (model.Inventory, error) {
	if productID <= 0 {
		return model.Inventory{}, NewBusinessRule("invalid product id")
	}
	if newQuantity < 0 {
		return model.Inventory{}, NewBusinessRule("quantity must be >= 0")
	}
	reason = reasonOr(reason, model.AdjustReasonSet)

	var out model.Inventory
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		cur, err := r.Inventory().LockByProductID(ctx, productID)
		if err != nil {
			return fromRepo(err, "inventory for product", productID)
		}
		if err := r.Inventory().SetQuantity(ctx, productID, newQuantity); err != nil {
			return fromRepo(err, "inventory for product", productID)
		}
		if delta := newQuantity - cur.QuantityAvailable; delta != 0 {
			if err := recordAdjustment(ctx, r.Inventory(), productID, delta, reason, nil); err != nil {
				return err
			}
		}
		out, err = r.Inventory().FindByProductID(ctx, productID)
		return fromRepo(err, "inventory for product", productID)
	})
	if err != nil {
		return model.Inventory{}, txError(err)
	}

	u.cache.Invalidate()
	return out, nil
}

// 足りるときだけ減らす
func (u *InventoryUsecase) Reduce(ctx context.Context, productID int64, amount int64, reason string) (model.Inventory, error) {
	if productID <= 0 {
		return model.Inventory{}, NewBusinessRule("invalid product id")
	}
	if amount <= 0 {
		return model.Inventory{}, NewBusinessRule("amount must be positive")
	}
	reason = reasonOr(reason, model.AdjustReasonReduce)

	var out model.Inventory
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := reduceStock(ctx, r.Inventory(), productID, amount, reason, nil); err != nil {
			return err
		}
		var err error
		out, err = r.Inventory().FindByProductID(ctx, productID)
		return fromRepo(err, "inventory for product", productID)
	})
	if err != nil {
		return model.Inventory{}, txError(err)
	}

	u.cache.Invalidate()
	return out, nil
}

// 入荷・戻し
func (u *InventoryUsecase) Add(ctx context.Context, productID int64, amount int64, reason string) (model.Inventory, error) {
	if productID <= 0 {
		return model.Inventory{}, NewBusinessRule("invalid product id")
	}
	if amount <= 0 {
		return model.Inventory{}, NewBusinessRule("amount must be positive")
	}
	reason = reasonOr(reason, model.AdjustReasonRestock)

	var out model.Inventory
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := addStock(ctx, r.Inventory(), productID, amount, reason, nil); err != nil {
			return err
		}
		var err error
		out, err = r.Inventory().FindByProductID(ctx, productID)
		return fromRepo(err, "inventory for product", productID)
	})
	if err != nil {
		return model.Inventory{}, txError(err)
	}

	u.cache.Invalidate()
	return out, nil
}

// threshold未満を数量の昇順で
func (u *InventoryUsecase) ListBelowThreshold(ctx context.Context, threshold int64) ([]model.Inventory, error) {
	if threshold < 0 {
		return []model.Inventory{}, NewBusinessRule("threshold must be >= 0")
	}
	items, err := u.inventory.ListBelow(ctx, threshold)
	if err != nil {
		return []model.Inventory{}, NewPersistence(err)
	}
	return sorter.MergeSort(items, byQuantity), nil
}

func (u *InventoryUsecase) ListOutOfStock(ctx context.Context) ([]model.Inventory, error) {
	items, err := u.inventory.ListOutOfStock(ctx)
	if err != nil {
		return []model.Inventory{}, NewPersistence(err)
	}
	return items, nil
}

// 全在庫を数量順で。同数量はproduct_id順のまま
func (u *InventoryUsecase) ListSortedByQuantity(ctx context.Context, ascending bool) ([]model.Inventory, error) {
	items, err := u.inventory.ListAll(ctx)
	if err != nil {
		return []model.Inventory{}, NewPersistence(err)
	}
	if ascending {
		return sorter.MergeSort(items, byQuantity), nil
	}
	return sorter.MergeSort(items, sorter.Reverse(byQuantity)), nil
}

// 調整履歴（新しい順）
func (u *InventoryUsecase) History(ctx context.Context, productID int64, limit int) ([]model.InventoryAdjustment, error) {
	if productID <= 0 {
		return []model.InventoryAdjustment{}, NewBusinessRule("invalid product id")
	}
	items, err := u.inventory.ListAdjustments(ctx, productID, limit)
	if err != nil {
		return []model.InventoryAdjustment{}, NewPersistence(err)
	}
	return items, nil
}

// 条件付き減算。足りなければInsufficientStock、在庫行が無ければNotFound
func reduceStock(ctx context.Context, inv repo.InventoryRepository, productID int64, qty int64, reason string, orderID *int64) error {
	ok, err := inv.DecreaseIfEnough(ctx, productID, qty)
	if err != nil {
		return NewPersistence(err)
	}
	if !ok {
		cur, err := inv.FindByProductID(ctx, productID)
		if err != nil {
			return fromRepo(err, "inventory for product", productID)
		}
		return NewInsufficientStock("insufficient stock for product %d: requested %d, available %d",
			productID, qty, cur.QuantityAvailable)
	}
	return recordAdjustment(ctx, inv, productID, -qty, reason, orderID)
}

func addStock(ctx context.Context, inv repo.InventoryRepository, productID int64, qty int64, reason string, orderID *int64) error {
	if err := inv.Increase(ctx, productID, qty); err != nil {
		return fromRepo(err, "inventory for product", productID)
	}
	return recordAdjustment(ctx, inv, productID, qty, reason, orderID)
}

func recordAdjustment(ctx context.Context, inv repo.InventoryRepository, productID int64, delta int64, reason string, orderID *int64) error {
	if err := inv.CreateAdjustment(ctx, model.InventoryAdjustment{
		ProductID: productID,
		OrderID:   orderID,
		Delta:     delta,
		Reason:    reason,
	}); err != nil {
		return NewPersistence(err)
	}
	return nil
}

func reasonOr(reason, def string) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	return def
}
