package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"smartcommerce/internal/cache"
	"smartcommerce/internal/domain/model"
	"smartcommerce/internal/infra/db"
	infrarepo "smartcommerce/internal/infra/repository"
	repo "smartcommerce/internal/repository"
	"smartcommerce/internal/usecase"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// sqlite(メモリ)上に全usecaseを組み立てたテスト環境
type testEnv struct {
	db    *gorm.DB
	cache *cache.ProductCache
	tx    *hookedTx

	users     repo.UserRepository
	inventory repo.InventoryRepository
	cartItems repo.CartItemRepository
	orders    repo.OrderRepository

	products  *usecase.ProductUsecase
	stock     *usecase.InventoryUsecase
	carts     *usecase.CartUsecase
	orderUC   *usecase.OrderUsecase
	reviews   *usecase.ReviewUsecase
	recorder  *fakeOrderRecorder
	category  model.Category
	threshold int64
}

type fakeOrderRecorder struct {
	mu            sync.Mutex
	placed        map[string]int
	restockFailed int
}

func (r *fakeOrderRecorder) OrderPlaced(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.placed[source]++
}

func (r *fakeOrderRecorder) RestockFailed() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restockFailed++
}

// commit後に一度だけafterCommitを呼ぶTxManager
type hookedTx struct {
	repo.TransactionManager
	afterCommit func()
}

func (h *hookedTx) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	err := h.TransactionManager.WithinTx(ctx, fn)
	if err == nil && h.afterCommit != nil {
		hook := h.afterCommit
		h.afterCommit = nil
		hook()
	}
	return err
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open(db.DriverSQLite, fmt.Sprintf("file:%s?mode=memory&cache=shared", name), db.Options{})
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gdb))
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	productRepo := infrarepo.NewProductGormRepository(gdb)
	categoryRepo := infrarepo.NewCategoryGormRepository(gdb)
	inventoryRepo := infrarepo.NewInventoryGormRepository(gdb)
	cartRepo := infrarepo.NewCartItemGormRepository(gdb)
	orderRepo := infrarepo.NewOrderGormRepository(gdb)
	orderItemRepo := infrarepo.NewOrderItemGormRepository(gdb)
	txm := &hookedTx{TransactionManager: infrarepo.NewTxManagerGorm(gdb)}

	productCache := cache.NewProductCache(productRepo)
	rec := &fakeOrderRecorder{placed: map[string]int{}}

	env := &testEnv{
		db:        gdb,
		cache:     productCache,
		tx:        txm,
		users:     infrarepo.NewUserGormRepository(gdb),
		inventory: inventoryRepo,
		cartItems: cartRepo,
		orders:    orderRepo,
		products:  usecase.NewProductUsecase(txm, productRepo, categoryRepo, productCache),
		stock:     usecase.NewInventoryUsecase(txm, inventoryRepo, productCache, 10),
		carts:     usecase.NewCartUsecase(txm, cartRepo),
		orderUC:   usecase.NewOrderUsecase(txm, orderRepo, orderItemRepo, productCache, rec),
		reviews:   usecase.NewReviewUsecase(infrarepo.NewReviewGormRepository(gdb), productRepo),
		recorder:  rec,
		threshold: 10,
	}

	env.category, err = env.products.CreateCategory(context.Background(), "general", "")
	require.NoError(t, err)
	return env
}

func (e *testEnv) seedUser(t *testing.T, email string) int64 {
	t.Helper()
	u := &model.User{Email: email, Name: email, Role: model.RoleUser, IsActive: true}
	require.NoError(t, e.users.Create(context.Background(), u))
	return u.ID
}

func (e *testEnv) seedProduct(t *testing.T, name, price string, qty int64) model.Product {
	t.Helper()
	p, err := e.products.CreateProduct(context.Background(), usecase.CreateProductInput{
		Name:            name,
		Price:           decimal.RequireFromString(price),
		CategoryID:      e.category.ID,
		InitialQuantity: qty,
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) stockOf(t *testing.T, productID int64) int64 {
	t.Helper()
	inv, err := e.inventory.FindByProductID(context.Background(), productID)
	require.NoError(t, err)
	return inv.QuantityAvailable
}

func assertKind(t *testing.T, err error, kind error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "want %v, got %v", kind, err)
}

func assertErrContains(t *testing.T, err error, substr string) {
	t.Helper()
	require.Error(t, err)
	assert.Contains(t, err.Error(), substr)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}
