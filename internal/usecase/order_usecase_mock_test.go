package usecase_test

import (
	"context"
	"errors"
	"testing"

	"smartcommerce/internal/domain/model"
	repo "smartcommerce/internal/repository"
	"smartcommerce/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// =====================
// TxManager / TxRepos mocks
// =====================

// TxManagerMock は WithinTx の中で渡す repos を固定して unit テストを回す
type TxManagerMock struct {
	mock.Mock
	Repos repo.TxRepos
}

func (m *TxManagerMock) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	m.Called(ctx)
	return fn(m.Repos)
}

type txReposMock struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	inventory  repo.InventoryRepository
}

func (r *txReposMock) Users() repo.UserRepository           { panic("not used in OrderUsecase mock tests") }
func (r *txReposMock) Categories() repo.CategoryRepository  { panic("not used in OrderUsecase mock tests") }
func (r *txReposMock) Products() repo.ProductRepository     { panic("not used in OrderUsecase mock tests") }
func (r *txReposMock) CartItems() repo.CartItemRepository   { panic("not used in OrderUsecase mock tests") }
func (r *txReposMock) Orders() repo.OrderRepository         { return r.orders }
func (r *txReposMock) OrderItems() repo.OrderItemRepository { return r.orderItems }
func (r *txReposMock) Inventory() repo.InventoryRepository  { return r.inventory }

// =====================
// Repository mocks
// =====================

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) ListByUserID(ctx context.Context, userID int64, page int, limit int) ([]model.Order, int64, error) {
	panic("not used in OrderUsecase mock tests")
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	panic("not used in OrderUsecase mock tests")
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	panic("not used in OrderUsecase mock tests")
}

func (m *OrderRepoMock) UpdateStatusIfIn(ctx context.Context, orderID int64, to model.OrderStatus, from []model.OrderStatus) (bool, error) {
	args := m.Called(ctx, orderID, to, from)
	return args.Bool(0), args.Error(1)
}

func (m *OrderRepoMock) Delete(ctx context.Context, orderID int64) error {
	panic("not used in OrderUsecase mock tests")
}

func (m *OrderRepoMock) ListAdmin(ctx context.Context, f repo.AdminOrderListFilter) ([]model.Order, int64, error) {
	panic("not used in OrderUsecase mock tests")
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	panic("not used in OrderUsecase mock tests")
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

func (m *OrderItemRepoMock) DeleteByOrderID(ctx context.Context, orderID int64) error {
	panic("not used in OrderUsecase mock tests")
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) Create(ctx context.Context, inv model.Inventory) error {
	panic("not used in OrderUsecase mock tests")
}

func (m *InventoryRepoMock) FindByProductID(ctx context.Context, productID int64) (model.Inventory, error) {
	panic("not used in OrderUsecase mock tests")
}

func (m *InventoryRepoMock) LockByProductID(ctx context.Context, productID int64) (model.Inventory, error) {
	panic("not used in OrderUsecase mock tests")
}

func (m *InventoryRepoMock) SetQuantity(ctx context.Context, productID int64, qty int64) error {
	panic("not used in OrderUsecase mock tests")
}

func (m *InventoryRepoMock) DecreaseIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	panic("not used in OrderUsecase mock tests")
}

func (m *InventoryRepoMock) Increase(ctx context.Context, productID int64, qty int64) error {
	args := m.Called(ctx, productID, qty)
	return args.Error(0)
}

func (m *InventoryRepoMock) ListBelow(ctx context.Context, threshold int64) ([]model.Inventory, error) {
	panic("not used in OrderUsecase mock tests")
}

func (m *InventoryRepoMock) ListOutOfStock(ctx context.Context) ([]model.Inventory, error) {
	panic("not used in OrderUsecase mock tests")
}

func (m *InventoryRepoMock) ListAll(ctx context.Context) ([]model.Inventory, error) {
	panic("not used in OrderUsecase mock tests")
}

func (m *InventoryRepoMock) CreateAdjustment(ctx context.Context, adjustment model.InventoryAdjustment) error {
	args := m.Called(ctx, adjustment)
	return args.Error(0)
}

func (m *InventoryRepoMock) ListAdjustments(ctx context.Context, productID int64, limit int) ([]model.InventoryAdjustment, error) {
	panic("not used in OrderUsecase mock tests")
}

type countingInvalidator struct{ n int }

func (c *countingInvalidator) Invalidate() { c.n++ }

type mockFixture struct {
	tx         *TxManagerMock
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	inventory  *InventoryRepoMock
	cache      *countingInvalidator
	rec        *fakeOrderRecorder
	uc         *usecase.OrderUsecase
}

func newMockFixture() *mockFixture {
	f := &mockFixture{
		orders:     new(OrderRepoMock),
		orderItems: new(OrderItemRepoMock),
		inventory:  new(InventoryRepoMock),
		cache:      &countingInvalidator{},
		rec:        &fakeOrderRecorder{placed: map[string]int{}},
	}
	f.tx = &TxManagerMock{Repos: &txReposMock{orders: f.orders, orderItems: f.orderItems, inventory: f.inventory}}
	f.uc = usecase.NewOrderUsecase(f.tx, f.orders, f.orderItems, f.cache, f.rec)
	return f
}

func TestOrderUsecase_UpdateStatus_CancelledIsFinal(t *testing.T) {
	ctx := context.Background()
	f := newMockFixture()

	f.orders.On("FindByID", mock.Anything, int64(1)).
		Return(model.Order{ID: 1, Status: model.OrderStatusCancelled}, nil)

	_, err := f.uc.UpdateStatus(ctx, 1, "shipped")
	assertKind(t, err, usecase.ErrInvalidStateTransition)

	f.orders.AssertNotCalled(t, "UpdateStatusIfIn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.tx.AssertNotCalled(t, "WithinTx", mock.Anything)
	assert.Equal(t, 0, f.cache.n)
	f.orders.AssertExpectations(t)
}

func TestOrderUsecase_CancelOrder_LostRaceDoesNotRestock(t *testing.T) {
	ctx := context.Background()
	f := newMockFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByID", mock.Anything, int64(7)).
		Return(model.Order{ID: 7, Status: model.OrderStatusPending}, nil)
	f.orders.On("UpdateStatusIfIn", mock.Anything, int64(7), model.OrderStatusCancelled, model.CancellableStatuses).
		Return(false, nil)

	_, err := f.uc.CancelOrder(ctx, 7)
	assertKind(t, err, usecase.ErrInvalidStateTransition)

	f.orderItems.AssertNotCalled(t, "ListByOrderID", mock.Anything, mock.Anything)
	f.inventory.AssertNotCalled(t, "Increase", mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 0, f.cache.n)
	f.orders.AssertExpectations(t)
}

func TestOrderUsecase_CancelOrder_PartialRestockReturnsWarnings(t *testing.T) {
	ctx := context.Background()
	f := newMockFixture()

	f.tx.On("WithinTx", mock.Anything).Return(nil)
	f.orders.On("FindByID", mock.Anything, int64(3)).
		Return(model.Order{ID: 3, Status: model.OrderStatusProcessing}, nil).Once()
	f.orders.On("UpdateStatusIfIn", mock.Anything, int64(3), model.OrderStatusCancelled, model.CancellableStatuses).
		Return(true, nil)
	f.orders.On("FindByID", mock.Anything, int64(3)).
		Return(model.Order{ID: 3, Status: model.OrderStatusCancelled}, nil).Once()

	items := []model.OrderItem{
		{ID: 1, OrderID: 3, ProductID: 10, Quantity: 2},
		{ID: 2, OrderID: 3, ProductID: 20, Quantity: 1},
	}
	f.orderItems.On("ListByOrderID", mock.Anything, int64(3)).Return(items, nil)

	f.inventory.On("Increase", mock.Anything, int64(10), int64(2)).Return(nil)
	f.inventory.On("Increase", mock.Anything, int64(20), int64(1)).Return(errors.New("connection reset"))
	f.inventory.On("CreateAdjustment", mock.Anything, mock.MatchedBy(func(a model.InventoryAdjustment) bool {
		return a.ProductID == 10 && a.Delta == 2 && a.Reason == model.AdjustReasonCancel && a.OrderID != nil && *a.OrderID == 3
	})).Return(nil)

	res, err := f.uc.CancelOrder(ctx, 3)
	require.NoError(t, err)

	assert.Equal(t, model.OrderStatusCancelled, res.Order.Status)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "product 20")
	assert.Equal(t, 1, f.rec.restockFailed)
	assert.Equal(t, 1, f.cache.n)

	// 最初のTx + 明細ごとのTx
	f.tx.AssertNumberOfCalls(t, "WithinTx", 3)
	f.orders.AssertExpectations(t)
	f.inventory.AssertExpectations(t)
}
