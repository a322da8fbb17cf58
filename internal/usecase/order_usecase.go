package usecase

import (
	"cmp"
	"context"
	"fmt"

	"smartcommerce/internal/domain/model"
	"smartcommerce/internal/logger"
	repo "smartcommerce/internal/repository"
	"smartcommerce/internal/sorter"

	"github.com/shopspring/decimal"
)

// 注文の発生源（メトリクスのラベル）
const (
	OrderSourceDirect   = "direct"
	OrderSourceCheckout = "checkout"
)

// 注文まわりの計測
type OrderRecorder interface {
	OrderPlaced(source string)
	RestockFailed()
}

type nopOrderRecorder struct{}

func (nopOrderRecorder) OrderPlaced(string) {}
func (nopOrderRecorder) RestockFailed()     {}

// 注文の作成・状態遷移・キャンセル
// 作成とチェックアウトは1トランザクションで、途中で失敗したら在庫も注文も残らない。
type OrderUsecase struct {
	tx         repo.TransactionManager
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	cache      CacheInvalidator
	rec        OrderRecorder
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	orderItems repo.OrderItemRepository,
	cache CacheInvalidator,
	rec OrderRecorder,
) *OrderUsecase {
	if rec == nil {
		rec = nopOrderRecorder{}
	}
	return &OrderUsecase{
		tx:         tx,
		orders:     orders,
		orderItems: orderItems,
		cache:      cache,
		rec:        rec,
	}
}

// 注文明細の入力。UnitPriceが無ければ現在の商品価格
type OrderLineInput struct {
	ProductID int64            `json:"product_id"`
	Quantity  int64            `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
}

// ステータス変更の結果。在庫戻しに失敗した明細はWarningsに入る
type StatusChangeResult struct {
	Order    model.Order `json:"order"`
	Warnings []string    `json:"warnings,omitempty"`
}

type OrderListOutput struct {
	Items []model.Order `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// 直接注文（pending）
func (u *OrderUsecase) CreateOrder(ctx context.Context, userID int64, lines []OrderLineInput) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewBusinessRule("invalid user id")
	}
	if len(lines) == 0 {
		return model.Order{}, NewBusinessRule("order must contain at least one item")
	}
	for _, l := range lines {
		if l.ProductID <= 0 {
			return model.Order{}, NewBusinessRule("invalid product id")
		}
		if l.Quantity <= 0 {
			return model.Order{}, NewBusinessRule("quantity must be positive for product %d", l.ProductID)
		}
		if l.UnitPrice != nil && l.UnitPrice.IsNegative() {
			return model.Order{}, NewBusinessRule("unit price must be >= 0 for product %d", l.ProductID)
		}
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := ensureUser(ctx, r, userID); err != nil {
			return err
		}
		o, err := placeOrder(ctx, r, userID, lines, model.OrderStatusPending)
		if err != nil {
			return err
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, txError(err)
	}

	u.cache.Invalidate()
	u.rec.OrderPlaced(OrderSourceDirect)
	return out, nil
}

// カートから注文（confirmed）。成功したらカートは空になる
func (u *OrderUsecase) CheckoutFromCart(ctx context.Context, userID int64) (model.Order, error) {
	if userID <= 0 {
		return model.Order{}, NewBusinessRule("invalid user id")
	}

	var out model.Order
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		if err := ensureUser(ctx, r, userID); err != nil {
			return err
		}

		cart, err := r.CartItems().ListLinesByUser(ctx, userID)
		if err != nil {
			return NewPersistence(err)
		}
		if len(cart) == 0 {
			return NewBusinessRule("cart is empty")
		}

		// 価格は今の商品価格
		lines := make([]OrderLineInput, 0, len(cart))
		for _, c := range cart {
			price := c.Price
			lines = append(lines, OrderLineInput{
				ProductID: c.ProductID,
				Quantity:  c.Quantity,
				UnitPrice: &price,
			})
		}

		o, err := placeOrder(ctx, r, userID, lines, model.OrderStatusConfirmed)
		if err != nil {
			return err
		}

		if err := r.CartItems().DeleteByUser(ctx, userID); err != nil {
			return NewPersistence(err)
		}
		out = o
		return nil
	})
	if err != nil {
		return model.Order{}, txError(err)
	}

	u.cache.Invalidate()
	u.rec.OrderPlaced(OrderSourceCheckout)
	return out, nil
}

// 在庫確認→注文作成→在庫減算。Tx内で呼ぶ
func placeOrder(ctx context.Context, r repo.TxRepos, userID int64, lines []OrderLineInput, status model.OrderStatus) (model.Order, error) {
	// 同じ商品の行は数量を合算して確認する
	need := make(map[int64]int64, len(lines))
	for _, l := range lines {
		need[l.ProductID] += l.Quantity
	}
	ids := make([]int64, 0, len(need))
	for id := range need {
		ids = append(ids, id)
	}
	// ロック順はproduct_id昇順で固定（デッドロック回避）
	ids = sorter.MergeSort(ids, cmp.Compare[int64])

	products := make(map[int64]model.Product, len(ids))
	for _, id := range ids {
		p, err := r.Products().FindByID(ctx, id)
		if err != nil {
			return model.Order{}, fromRepo(err, "product", id)
		}
		products[id] = p

		inv, err := r.Inventory().LockByProductID(ctx, id)
		if err != nil {
			return model.Order{}, fromRepo(err, "inventory for product", id)
		}
		if inv.QuantityAvailable < need[id] {
			return model.Order{}, NewInsufficientStock("insufficient stock for product %d: requested %d, available %d",
				id, need[id], inv.QuantityAvailable)
		}
	}

	items := make([]model.OrderItem, 0, len(lines))
	for _, l := range lines {
		price := products[l.ProductID].Price
		if l.UnitPrice != nil {
			price = *l.UnitPrice
		}
		items = append(items, model.OrderItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: price,
		})
	}

	orderID, err := r.Orders().Create(ctx, model.Order{
		UserID:      userID,
		Status:      status,
		TotalAmount: model.SumItems(items),
	})
	if err != nil {
		return model.Order{}, NewPersistence(err)
	}
	if err := r.OrderItems().CreateBulk(ctx, orderID, items); err != nil {
		return model.Order{}, NewPersistence(err)
	}

	for _, id := range ids {
		if err := reduceStock(ctx, r.Inventory(), id, need[id], model.AdjustReasonOrder, &orderID); err != nil {
			return model.Order{}, err
		}
	}

	return loadOrder(ctx, r.Orders(), r.OrderItems(), orderID)
}

// キャンセル。ステータスを先に変えてから明細ごとに在庫を戻す。
// 戻せなかった明細はログに出してWarningsで返す（キャンセル自体は成功扱い）
func (u *OrderUsecase) CancelOrder(ctx context.Context, orderID int64) (StatusChangeResult, error) {
	if orderID <= 0 {
		return StatusChangeResult{}, NewBusinessRule("invalid order id")
	}

	var items []model.OrderItem
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order", orderID)
		}
		if !o.Status.Cancellable() {
			return NewInvalidTransition("cannot cancel order %d in status %s", orderID, o.Status)
		}

		// 同時キャンセルは片方だけが通る
		ok, err := r.Orders().UpdateStatusIfIn(ctx, orderID, model.OrderStatusCancelled, model.CancellableStatuses)
		if err != nil {
			return NewPersistence(err)
		}
		if !ok {
			return NewInvalidTransition("order %d is no longer cancellable", orderID)
		}

		items, err = r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewPersistence(err)
		}
		return nil
	})
	if err != nil {
		return StatusChangeResult{}, txError(err)
	}

	// キャンセルはcommit済み。ここから先は呼び出し元のctxが切れても最後まで戻す
	ctx = context.WithoutCancel(ctx)
	warnings := u.restock(ctx, orderID, items)
	u.cache.Invalidate()

	o, err := loadOrder(ctx, u.orders, u.orderItems, orderID)
	if err != nil {
		return StatusChangeResult{}, err
	}
	return StatusChangeResult{Order: o, Warnings: warnings}, nil
}

// 明細ごとに別Txで在庫を戻す
func (u *OrderUsecase) restock(ctx context.Context, orderID int64, items []model.OrderItem) []string {
	var warnings []string
	for _, it := range items {
		err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
			return addStock(ctx, r.Inventory(), it.ProductID, it.Quantity, model.AdjustReasonCancel, &orderID)
		})
		if err == nil {
			continue
		}
		logger.WithCtx(ctx).Warn("restock failed",
			"order_id", orderID,
			"product_id", it.ProductID,
			"quantity", it.Quantity,
			"error", err,
		)
		u.rec.RestockFailed()
		warnings = append(warnings, fmt.Sprintf("failed to restock product %d (quantity %d): %v", it.ProductID, it.Quantity, err))
	}
	return warnings
}

// ステータス変更（管理者）。cancelledへの変更はCancelOrderに回して在庫を戻す
func (u *OrderUsecase) UpdateStatus(ctx context.Context, orderID int64, status string) (StatusChangeResult, error) {
	if orderID <= 0 {
		return StatusChangeResult{}, NewBusinessRule("invalid order id")
	}
	next, ok := model.ParseOrderStatus(status)
	if !ok {
		return StatusChangeResult{}, NewInvalidTransition("invalid status %q", status)
	}

	o, err := u.orders.FindByID(ctx, orderID)
	if err != nil {
		return StatusChangeResult{}, fromRepo(err, "order", orderID)
	}

	// 終端ガード
	if o.Status == model.OrderStatusCancelled {
		return StatusChangeResult{}, NewInvalidTransition("cannot change status of cancelled order %d", orderID)
	}
	// 同じなら何もしない
	if o.Status == next {
		out, err := loadOrder(ctx, u.orders, u.orderItems, orderID)
		if err != nil {
			return StatusChangeResult{}, err
		}
		return StatusChangeResult{Order: out}, nil
	}
	if next == model.OrderStatusCancelled {
		return u.CancelOrder(ctx, orderID)
	}
	if !o.Status.CanTransitionTo(next) {
		return StatusChangeResult{}, NewInvalidTransition("cannot change order %d from %s to %s", orderID, o.Status, next)
	}

	// 読んだ時点のステータスのときだけ更新
	ok, err = u.orders.UpdateStatusIfIn(ctx, orderID, next, []model.OrderStatus{o.Status})
	if err != nil {
		return StatusChangeResult{}, NewPersistence(err)
	}
	if !ok {
		return StatusChangeResult{}, NewInvalidTransition("order %d was modified concurrently", orderID)
	}

	u.cache.Invalidate()
	out, err := loadOrder(ctx, u.orders, u.orderItems, orderID)
	if err != nil {
		return StatusChangeResult{}, err
	}
	return StatusChangeResult{Order: out}, nil
}

// 注文削除（管理者）。出荷済み・配達済みは不可。
// キャンセル済みでなければ同じTxで在庫を戻してから消す
func (u *OrderUsecase) DeleteOrder(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return NewBusinessRule("invalid order id")
	}

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		o, err := r.Orders().FindByID(ctx, orderID)
		if err != nil {
			return fromRepo(err, "order", orderID)
		}
		if !o.Status.Deletable() {
			return NewInvalidTransition("cannot delete order %d in status %s", orderID, o.Status)
		}

		items, err := r.OrderItems().ListByOrderID(ctx, orderID)
		if err != nil {
			return NewPersistence(err)
		}
		if o.Status != model.OrderStatusCancelled {
			for _, it := range items {
				if err := addStock(ctx, r.Inventory(), it.ProductID, it.Quantity, model.AdjustReasonDeletion, &orderID); err != nil {
					return err
				}
			}
		}

		if err := r.OrderItems().DeleteByOrderID(ctx, orderID); err != nil {
			return NewPersistence(err)
		}
		if err := r.Orders().Delete(ctx, orderID); err != nil {
			return fromRepo(err, "order", orderID)
		}
		return nil
	})
	if err != nil {
		return txError(err)
	}

	u.cache.Invalidate()
	return nil
}

func (u *OrderUsecase) GetOrder(ctx context.Context, orderID int64) (model.Order, error) {
	if orderID <= 0 {
		return model.Order{}, NewBusinessRule("invalid order id")
	}
	return loadOrder(ctx, u.orders, u.orderItems, orderID)
}

// 他人の注文は存在しない扱い
func (u *OrderUsecase) GetOrderForUser(ctx context.Context, userID int64, orderID int64) (model.Order, error) {
	o, err := u.GetOrder(ctx, orderID)
	if err != nil {
		return model.Order{}, err
	}
	if o.UserID != userID {
		return model.Order{}, NewNotFound("order %d not found", orderID)
	}
	return o, nil
}

func (u *OrderUsecase) GetOrderItems(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	if _, err := u.orders.FindByID(ctx, orderID); err != nil {
		return []model.OrderItem{}, fromRepo(err, "order", orderID)
	}
	items, err := u.orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return []model.OrderItem{}, NewPersistence(err)
	}
	return items, nil
}

func (u *OrderUsecase) ListOrdersByUser(ctx context.Context, userID int64, page int, limit int) (OrderListOutput, error) {
	if userID <= 0 {
		return OrderListOutput{}, NewBusinessRule("invalid user id")
	}
	if err := checkPaging(page, limit); err != nil {
		return OrderListOutput{}, err
	}

	orders, total, err := u.orders.ListByUserID(ctx, userID, page, limit)
	if err != nil {
		return OrderListOutput{}, NewPersistence(err)
	}
	if err := u.attachItems(ctx, orders); err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Items: orders, Total: total, Page: page, Limit: limit}, nil
}

// 管理者用の一覧
func (u *OrderUsecase) ListOrders(ctx context.Context, f repo.AdminOrderListFilter) (OrderListOutput, error) {
	if err := checkPaging(f.Page, f.Limit); err != nil {
		return OrderListOutput{}, err
	}
	if f.Status != "" {
		st, ok := model.ParseOrderStatus(f.Status)
		if !ok {
			return OrderListOutput{}, NewInvalidTransition("invalid status %q", f.Status)
		}
		f.Status = string(st)
	}

	orders, total, err := u.orders.ListAdmin(ctx, f)
	if err != nil {
		return OrderListOutput{}, NewPersistence(err)
	}
	if err := u.attachItems(ctx, orders); err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Items: orders, Total: total, Page: f.Page, Limit: f.Limit}, nil
}

func (u *OrderUsecase) attachItems(ctx context.Context, orders []model.Order) error {
	for i := range orders {
		items, err := u.orderItems.ListByOrderID(ctx, orders[i].ID)
		if err != nil {
			return NewPersistence(err)
		}
		orders[i].Items = items
	}
	return nil
}

func ensureUser(ctx context.Context, r repo.TxRepos, userID int64) error {
	ok, err := r.Users().Exists(ctx, userID)
	if err != nil {
		return NewPersistence(err)
	}
	if !ok {
		return NewNotFound("user %d not found", userID)
	}
	return nil
}

func loadOrder(ctx context.Context, orders repo.OrderRepository, orderItems repo.OrderItemRepository, orderID int64) (model.Order, error) {
	o, err := orders.FindByID(ctx, orderID)
	if err != nil {
		return model.Order{}, fromRepo(err, "order", orderID)
	}
	items, err := orderItems.ListByOrderID(ctx, orderID)
	if err != nil {
		return model.Order{}, NewPersistence(err)
	}
	o.Items = items
	return o, nil
}

func checkPaging(page, limit int) error {
	if page < 1 {
		return NewBusinessRule("invalid page")
	}
	if limit < 1 || limit > 100 {
		return NewBusinessRule("invalid limit")
	}
	return nil
}
