package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/internal/notifications"
	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
)

type fakeRepository struct {
	createFn      func(ctx context.Context, order *models.Order) error
	saveFn        func(ctx context.Context, order *models.Order) error
	findByIDFn    func(ctx context.Context, id uuid.UUID) (*models.Order, error)
	findTenantFn  func(ctx context.Context, id, tenantID uuid.UUID) (*models.Order, error)
	findCartFn    func(ctx context.Context, userID, tenantID uuid.UUID) (*models.Order, error)
	findTokenFn   func(ctx context.Context, token string, tenantID uuid.UUID) (*models.Order, error)
	createItemFn  func(ctx context.Context, item *models.OrderItem) error
	saveItemFn    func(ctx context.Context, item *models.OrderItem) error
	deleteItemFn  func(ctx context.Context, id uuid.UUID) error
	listUserFn    func(ctx context.Context, params UserListQuery) ([]models.Order, error)
	listTenantFn  func(ctx context.Context, params TenantListQuery) ([]models.Order, error)
	listQueueFn   func(ctx context.Context, tenantID uuid.UUID) ([]models.Order, error)
	listReadyFn   func(ctx context.Context, params CounterListQuery) ([]models.Order, error)
	releaseLaneFn func(ctx context.Context, laneID, tenantID uuid.UUID) error
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, order *models.Order) error {
	return f.createFn(ctx, order)
}

func (f *fakeRepository) Save(ctx context.Context, order *models.Order) error {
	return f.saveFn(ctx, order)
}

func (f *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return f.findByIDFn(ctx, id)
}

func (f *fakeRepository) FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Order, error) {
	return f.findTenantFn(ctx, id, tenantID)
}

func (f *fakeRepository) FindCart(ctx context.Context, userID, tenantID uuid.UUID) (*models.Order, error) {
	return f.findCartFn(ctx, userID, tenantID)
}

func (f *fakeRepository) FindByPickupToken(ctx context.Context, token string, tenantID uuid.UUID) (*models.Order, error) {
	return f.findTokenFn(ctx, token, tenantID)
}

func (f *fakeRepository) CreateItem(ctx context.Context, item *models.OrderItem) error {
	return f.createItemFn(ctx, item)
}

func (f *fakeRepository) SaveItem(ctx context.Context, item *models.OrderItem) error {
	return f.saveItemFn(ctx, item)
}

func (f *fakeRepository) DeleteItem(ctx context.Context, id uuid.UUID) error {
	return f.deleteItemFn(ctx, id)
}

func (f *fakeRepository) ListForUser(ctx context.Context, params UserListQuery) ([]models.Order, error) {
	return f.listUserFn(ctx, params)
}

func (f *fakeRepository) ListForTenant(ctx context.Context, params TenantListQuery) ([]models.Order, error) {
	return f.listTenantFn(ctx, params)
}

func (f *fakeRepository) ListFulfillmentQueue(ctx context.Context, tenantID uuid.UUID) ([]models.Order, error) {
	return f.listQueueFn(ctx, tenantID)
}

func (f *fakeRepository) ListReadyForPickup(ctx context.Context, params CounterListQuery) ([]models.Order, error) {
	return f.listReadyFn(ctx, params)
}

func (f *fakeRepository) ReleaseLane(ctx context.Context, laneID, tenantID uuid.UUID) error {
	return f.releaseLaneFn(ctx, laneID, tenantID)
}

type fakeProductLoader struct {
	products map[uuid.UUID]*models.Product
}

func (f *fakeProductLoader) FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Product, error) {
	if product, ok := f.products[id]; ok {
		return product, nil
	}
	return nil, gorm.ErrRecordNotFound
}

type fakeStaffLister struct {
	users []models.User
}

func (f *fakeStaffLister) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.User, error) {
	return f.users, nil
}

type fakeNotifier struct {
	batches [][]notifications.CreateInput
}

func (f *fakeNotifier) CreateBatch(ctx context.Context, inputs []notifications.CreateInput) error {
	f.batches = append(f.batches, inputs)
	return nil
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type deps struct {
	repo     *fakeRepository
	products *fakeProductLoader
	staff    *fakeStaffLister
	notifier *fakeNotifier
}

func newServiceWithDeps(t *testing.T, d deps) Service {
	t.Helper()
	if d.repo == nil {
		d.repo = &fakeRepository{}
	}
	if d.products == nil {
		d.products = &fakeProductLoader{products: map[uuid.UUID]*models.Product{}}
	}
	if d.staff == nil {
		d.staff = &fakeStaffLister{}
	}
	if d.notifier == nil {
		d.notifier = &fakeNotifier{}
	}
	svc, err := NewService(d.repo, d.products, d.staff, d.notifier, fakeTxRunner{})
	require.NoError(t, err)
	return svc
}

func TestService_GetCartCreatesOnFirstUse(t *testing.T) {
	var created *models.Order
	repo := &fakeRepository{
		findCartFn: func(ctx context.Context, userID, tenantID uuid.UUID) (*models.Order, error) {
			return nil, gorm.ErrRecordNotFound
		},
		createFn: func(ctx context.Context, order *models.Order) error {
			created = order
			return nil
		},
	}
	svc := newServiceWithDeps(t, deps{repo: repo})

	cart, err := svc.GetCart(context.Background(), uuid.New(), uuid.New())
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, enums.OrderStatusCart, cart.Status)
	assert.Equal(t, enums.OrderTypeBOPIS, cart.OrderType)
	assert.Equal(t, enums.PaymentStatusUnpaid, cart.PaymentStatus)
	assert.True(t, cart.TotalAmount.IsZero())
}

func TestService_GetCartRecoversFromConcurrentCreate(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	winner := &models.Order{ID: uuid.New(), UserID: userID, TenantID: tenantID, Status: enums.OrderStatusCart}

	calls := 0
	repo := &fakeRepository{
		findCartFn: func(ctx context.Context, uid, tid uuid.UUID) (*models.Order, error) {
			calls++
			if calls == 1 {
				return nil, gorm.ErrRecordNotFound
			}
			return winner, nil
		},
		createFn: func(ctx context.Context, order *models.Order) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_orders_open_cart"}
		},
	}
	svc := newServiceWithDeps(t, deps{repo: repo})

	cart, err := svc.GetCart(context.Background(), userID, tenantID)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, cart.ID)
	assert.Equal(t, 2, calls)
}

func TestService_GetCartConcurrentCreateRefetchFailure(t *testing.T) {
	calls := 0
	repo := &fakeRepository{
		findCartFn: func(ctx context.Context, uid, tid uuid.UUID) (*models.Order, error) {
			calls++
			return nil, gorm.ErrRecordNotFound
		},
		createFn: func(ctx context.Context, order *models.Order) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_orders_open_cart"}
		},
	}
	svc := newServiceWithDeps(t, deps{repo: repo})

	_, err := svc.GetCart(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	require.NotNil(t, pkgerrors.As(err))
	assert.Equal(t, pkgerrors.CodeInternal, pkgerrors.As(err).Code())
}

func TestService_AddItemChecksCumulativeStock(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	product := &models.Product{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Name:          "Oat Milk",
		Price:         decimal.NewFromInt(4),
		StockQuantity: 4,
	}
	cart := &models.Order{
		ID:       uuid.New(),
		UserID:   userID,
		TenantID: tenantID,
		Status:   enums.OrderStatusCart,
		Items: []models.OrderItem{{
			ID:              uuid.New(),
			ProductID:       product.ID,
			Quantity:        2,
			PriceAtPurchase: decimal.NewFromInt(4),
		}},
	}
	svc := newServiceWithDeps(t, deps{
		repo: &fakeRepository{
			findCartFn: func(ctx context.Context, uid, tid uuid.UUID) (*models.Order, error) {
				return cart, nil
			},
		},
		products: &fakeProductLoader{products: map[uuid.UUID]*models.Product{product.ID: product}},
	})

	_, err := svc.AddItem(context.Background(), userID, tenantID, product.ID, 3)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, pkgerrors.As(err).Code())
}

func TestService_AddItemSnapshotsPriceAndTotals(t *testing.T) {
	userID := uuid.New()
	tenantID := uuid.New()
	product := &models.Product{
		ID:            uuid.New(),
		TenantID:      tenantID,
		Name:          "Oat Milk",
		Price:         decimal.RequireFromString("4.50"),
		StockQuantity: 10,
	}
	cart := &models.Order{
		ID:       uuid.New(),
		UserID:   userID,
		TenantID: tenantID,
		Status:   enums.OrderStatusCart,
	}
	var savedOrder *models.Order
	svc := newServiceWithDeps(t, deps{
		repo: &fakeRepository{
			findCartFn: func(ctx context.Context, uid, tid uuid.UUID) (*models.Order, error) {
				return cart, nil
			},
			createItemFn: func(ctx context.Context, item *models.OrderItem) error {
				return nil
			},
			saveFn: func(ctx context.Context, order *models.Order) error {
				savedOrder = order
				return nil
			},
		},
		products: &fakeProductLoader{products: map[uuid.UUID]*models.Product{product.ID: product}},
	})

	updated, err := svc.AddItem(context.Background(), userID, tenantID, product.ID, 2)
	require.NoError(t, err)
	require.NotNil(t, savedOrder)
	require.Len(t, updated.Items, 1)
	assert.True(t, updated.Items[0].PriceAtPurchase.Equal(decimal.RequireFromString("4.50")))
	assert.True(t, updated.TotalAmount.Equal(decimal.RequireFromString("9.00")))
}

func TestService_AddItemRejectsNonPositiveQuantity(t *testing.T) {
	svc := newServiceWithDeps(t, deps{})

	_, err := svc.AddItem(context.Background(), uuid.New(), uuid.New(), uuid.New(), 0)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestService_UpdateItemQuantityMissingItem(t *testing.T) {
	cart := &models.Order{ID: uuid.New(), Status: enums.OrderStatusCart}
	svc := newServiceWithDeps(t, deps{
		repo: &fakeRepository{
			findCartFn: func(ctx context.Context, uid, tid uuid.UUID) (*models.Order, error) {
				return cart, nil
			},
		},
	})

	_, err := svc.UpdateItemQuantity(context.Background(), uuid.New(), uuid.New(), uuid.New(), 2)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestService_RemoveItemRecomputesTotal(t *testing.T) {
	keep := models.OrderItem{
		ID:              uuid.New(),
		ProductID:       uuid.New(),
		Quantity:        1,
		PriceAtPurchase: decimal.NewFromInt(3),
	}
	drop := models.OrderItem{
		ID:              uuid.New(),
		ProductID:       uuid.New(),
		Quantity:        2,
		PriceAtPurchase: decimal.NewFromInt(5),
	}
	cart := &models.Order{ID: uuid.New(), Status: enums.OrderStatusCart, Items: []models.OrderItem{keep, drop}}
	svc := newServiceWithDeps(t, deps{
		repo: &fakeRepository{
			findCartFn: func(ctx context.Context, uid, tid uuid.UUID) (*models.Order, error) {
				return cart, nil
			},
			deleteItemFn: func(ctx context.Context, id uuid.UUID) error {
				assert.Equal(t, drop.ID, id)
				return nil
			},
			saveFn: func(ctx context.Context, order *models.Order) error {
				return nil
			},
		},
	})

	updated, err := svc.RemoveItem(context.Background(), uuid.New(), uuid.New(), drop.ProductID)
	require.NoError(t, err)
	require.Len(t, updated.Items, 1)
	assert.True(t, updated.TotalAmount.Equal(decimal.NewFromInt(3)))
}
