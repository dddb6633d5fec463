package products

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
)

type fakeRepository struct {
	createFn          func(ctx context.Context, product *models.Product) error
	saveWithVersionFn func(ctx context.Context, product *models.Product, expectedVersion int) (bool, error)
	deleteFn          func(ctx context.Context, id uuid.UUID) error
	countOpenRefsFn   func(ctx context.Context, productID uuid.UUID) (int64, error)
	findByIDFn        func(ctx context.Context, id, tenantID uuid.UUID) (*models.Product, error)
	findBySKUFn       func(ctx context.Context, sku string, tenantID uuid.UUID) (*models.Product, error)
	listFn            func(ctx context.Context, params ListQuery) ([]models.Product, error)
}

func (f *fakeRepository) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeRepository) Create(ctx context.Context, product *models.Product) error {
	return f.createFn(ctx, product)
}

func (f *fakeRepository) Save(ctx context.Context, product *models.Product) error {
	return nil
}

func (f *fakeRepository) SaveWithVersion(ctx context.Context, product *models.Product, expectedVersion int) (bool, error) {
	return f.saveWithVersionFn(ctx, product, expectedVersion)
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return f.deleteFn(ctx, id)
}

func (f *fakeRepository) CountOpenOrderReferences(ctx context.Context, productID uuid.UUID) (int64, error) {
	if f.countOpenRefsFn == nil {
		return 0, nil
	}
	return f.countOpenRefsFn(ctx, productID)
}

func (f *fakeRepository) FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Product, error) {
	return f.findByIDFn(ctx, id, tenantID)
}

func (f *fakeRepository) FindBySKUAndTenant(ctx context.Context, sku string, tenantID uuid.UUID) (*models.Product, error) {
	return f.findBySKUFn(ctx, sku, tenantID)
}

func (f *fakeRepository) ListByTenant(ctx context.Context, params ListQuery) ([]models.Product, error) {
	return f.listFn(ctx, params)
}

func newServiceWithRepo(t *testing.T, repo Repository) Service {
	t.Helper()
	svc, err := NewService(repo)
	require.NoError(t, err)
	return svc
}

func TestService_CreateAssignsInitialVersion(t *testing.T) {
	tenantID := uuid.New()
	var created *models.Product
	svc := newServiceWithRepo(t, &fakeRepository{
		createFn: func(ctx context.Context, product *models.Product) error {
			created = product
			return nil
		},
	})

	product, err := svc.Create(context.Background(), tenantID, CreateInput{
		SKU:           "  SKU-100 ",
		Name:          "Cold Brew Concentrate",
		Price:         decimal.NewFromFloat(12.50),
		StockQuantity: 40,
	})
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, "SKU-100", product.SKU)
	assert.Equal(t, tenantID, product.TenantID)
	assert.Equal(t, 1, product.Version)
	assert.Equal(t, 40, product.StockQuantity)
}

func TestService_CreateDuplicateSKU(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{
		createFn: func(ctx context.Context, product *models.Product) error {
			return &pgconn.PgError{Code: "23505", ConstraintName: "uq_products_sku_tenant"}
		},
	})

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		SKU:   "SKU-100",
		Name:  "Cold Brew Concentrate",
		Price: decimal.NewFromInt(12),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestService_CreateNegativePrice(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		SKU:   "SKU-100",
		Name:  "Cold Brew Concentrate",
		Price: decimal.NewFromInt(-1),
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.As(err).Code())
}

func TestService_UpdateVersionConflict(t *testing.T) {
	tenantID := uuid.New()
	productID := uuid.New()
	svc := newServiceWithRepo(t, &fakeRepository{
		findByIDFn: func(ctx context.Context, id, tid uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: productID, TenantID: tenantID, SKU: "SKU-100", Name: "Cold Brew", Version: 3}, nil
		},
		saveWithVersionFn: func(ctx context.Context, product *models.Product, expectedVersion int) (bool, error) {
			return false, nil
		},
	})

	_, err := svc.Update(context.Background(), tenantID, productID, UpdateInput{
		SKU:             "SKU-100",
		Name:            "Cold Brew",
		Price:           decimal.NewFromInt(10),
		ExpectedVersion: 2,
	})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeConflict, pkgerrors.As(err).Code())
}

func TestService_UpdateBumpsVersion(t *testing.T) {
	tenantID := uuid.New()
	productID := uuid.New()
	svc := newServiceWithRepo(t, &fakeRepository{
		findByIDFn: func(ctx context.Context, id, tid uuid.UUID) (*models.Product, error) {
			return &models.Product{ID: productID, TenantID: tenantID, SKU: "SKU-100", Name: "Cold Brew", Version: 2}, nil
		},
		saveWithVersionFn: func(ctx context.Context, product *models.Product, expectedVersion int) (bool, error) {
			product.Version = expectedVersion + 1
			return true, nil
		},
	})

	product, err := svc.Update(context.Background(), tenantID, productID, UpdateInput{
		SKU:             "SKU-100",
		Name:            "Cold Brew Concentrate",
		Price:           decimal.NewFromInt(10),
		StockQuantity:   5,
		ExpectedVersion: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, product.Version)
	assert.Equal(t, "Cold Brew Concentrate", product.Name)
}

func TestService_GetNotFound(t *testing.T) {
	svc := newServiceWithRepo(t, &fakeRepository{
		findByIDFn: func(ctx context.Context, id, tenantID uuid.UUID) (*models.Product, error) {
			return nil, gorm.ErrRecordNotFound
		},
	})

	_, err := svc.Get(context.Background(), uuid.New(), uuid.New())
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
}

func TestService_ListNormalizesPaging(t *testing.T) {
	var captured ListQuery
	svc := newServiceWithRepo(t, &fakeRepository{
		listFn: func(ctx context.Context, params ListQuery) ([]models.Product, error) {
			captured = params
			return nil, nil
		},
	})

	since := time.Now().Add(-time.Hour)
	_, err := svc.List(context.Background(), uuid.New(), ListParams{Limit: -5, Offset: -1, UpdatedSince: &since})
	require.NoError(t, err)
	assert.Equal(t, 100, captured.Limit)
	assert.Equal(t, 0, captured.Offset)
	require.NotNil(t, captured.UpdatedSince)
}

func TestService_DeleteReferencedByOpenOrders(t *testing.T) {
	tenantID := uuid.New()
	product := &models.Product{ID: uuid.New(), TenantID: tenantID}
	svc := newServiceWithRepo(t, &fakeRepository{
		findByIDFn: func(ctx context.Context, id, tid uuid.UUID) (*models.Product, error) {
			return product, nil
		},
		countOpenRefsFn: func(ctx context.Context, productID uuid.UUID) (int64, error) {
			return 2, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			t.Fatal("delete should not be called")
			return nil
		},
	})

	err := svc.Delete(context.Background(), tenantID, product.ID)
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeStateConflict, pkgerrors.As(err).Code())
}

func TestService_DeleteUnreferenced(t *testing.T) {
	tenantID := uuid.New()
	product := &models.Product{ID: uuid.New(), TenantID: tenantID}
	deleted := false
	svc := newServiceWithRepo(t, &fakeRepository{
		findByIDFn: func(ctx context.Context, id, tid uuid.UUID) (*models.Product, error) {
			return product, nil
		},
		deleteFn: func(ctx context.Context, id uuid.UUID) error {
			deleted = true
			return nil
		},
	})

	require.NoError(t, svc.Delete(context.Background(), tenantID, product.ID))
	assert.True(t, deleted)
}
