package products

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
	"github.com/louretail/bopis-backend/pkg/validate"
)

// CreateInput carries the fields accepted when adding a product to a tenant
// catalog.
type CreateInput struct {
	SKU           string          `json:"sku" validate:"required,min=1,max=64"`
	Name          string          `json:"name" validate:"required,min=1,max=255"`
	Description   *string         `json:"description"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity" validate:"gte=0"`
	ImageURL      *string         `json:"image_url"`
}

// UpdateInput carries a full catalog update. ExpectedVersion guards against
// concurrent writers overwriting each other.
type UpdateInput struct {
	SKU             string          `json:"sku" validate:"required,min=1,max=64"`
	Name            string          `json:"name" validate:"required,min=1,max=255"`
	Description     *string         `json:"description"`
	Price           decimal.Decimal `json:"price"`
	StockQuantity   int             `json:"stock_quantity" validate:"gte=0"`
	ImageURL        *string         `json:"image_url"`
	ExpectedVersion int             `json:"expected_version" validate:"required,gte=1"`
}

// ListParams filters and pages the catalog listing.
type ListParams struct {
	Limit        int
	Offset       int
	UpdatedSince *time.Time
}

// Service manages the per-tenant product catalog.
type Service interface {
	Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*models.Product, error)
	Update(ctx context.Context, tenantID, productID uuid.UUID, in UpdateInput) (*models.Product, error)
	Delete(ctx context.Context, tenantID, productID uuid.UUID) error
	Get(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error)
	GetBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*models.Product, error)
	List(ctx context.Context, tenantID uuid.UUID, params ListParams) ([]models.Product, error)
}

type service struct {
	repo Repository
}

// NewService wires a products service over the given repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "products repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, in CreateInput) (*models.Product, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	product := &models.Product{
		ID:            uuid.New(),
		TenantID:      tenantID,
		SKU:           strings.TrimSpace(in.SKU),
		Name:          strings.TrimSpace(in.Name),
		Description:   in.Description,
		Price:         in.Price,
		StockQuantity: in.StockQuantity,
		ImageURL:      in.ImageURL,
		Version:       1,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if pkgerrors.IsUniqueViolation(err, "uq_products_sku_tenant") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists for this tenant")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create product")
	}
	return product, nil
}

func (s *service) Update(ctx context.Context, tenantID, productID uuid.UUID, in UpdateInput) (*models.Product, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}
	if in.Price.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}

	product, err := s.Get(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}

	product.SKU = strings.TrimSpace(in.SKU)
	product.Name = strings.TrimSpace(in.Name)
	product.Description = in.Description
	product.Price = in.Price
	product.StockQuantity = in.StockQuantity
	product.ImageURL = in.ImageURL

	updated, err := s.repo.SaveWithVersion(ctx, product, in.ExpectedVersion)
	if err != nil {
		if pkgerrors.IsUniqueViolation(err, "uq_products_sku_tenant") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "sku already exists for this tenant")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update product")
	}
	if !updated {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "product was modified by another transaction").
			WithDetails(map[string]any{"expected_version": in.ExpectedVersion})
	}
	return product, nil
}

func (s *service) Delete(ctx context.Context, tenantID, productID uuid.UUID) error {
	product, err := s.Get(ctx, tenantID, productID)
	if err != nil {
		return err
	}
	refs, err := s.repo.CountOpenOrderReferences(ctx, product.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to check order references")
	}
	if refs > 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "product is referenced by open orders").
			WithDetails(map[string]any{"open_order_items": refs})
	}
	if err := s.repo.Delete(ctx, product.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to delete product")
	}
	return nil
}

func (s *service) Get(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.repo.FindByIDAndTenant(ctx, productID, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	return product, nil
}

func (s *service) GetBySKU(ctx context.Context, tenantID uuid.UUID, sku string) (*models.Product, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	product, err := s.repo.FindBySKUAndTenant(ctx, sku, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	return product, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params ListParams) ([]models.Product, error) {
	if params.Limit <= 0 || params.Limit > 200 {
		params.Limit = 100
	}
	if params.Offset < 0 {
		params.Offset = 0
	}
	products, err := s.repo.ListByTenant(ctx, ListQuery{
		TenantID:     tenantID,
		Limit:        params.Limit,
		Offset:       params.Offset,
		UpdatedSince: params.UpdatedSince,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list products")
	}
	return products, nil
}
