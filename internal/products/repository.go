package products

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
)

// Repository exposes persistence helpers for the product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, product *models.Product) error
	Save(ctx context.Context, product *models.Product) error
	SaveWithVersion(ctx context.Context, product *models.Product, expectedVersion int) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) error
	CountOpenOrderReferences(ctx context.Context, productID uuid.UUID) (int64, error)
	FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Product, error)
	FindBySKUAndTenant(ctx context.Context, sku string, tenantID uuid.UUID) (*models.Product, error)
	ListByTenant(ctx context.Context, params ListQuery) ([]models.Product, error)
}

// ListQuery filters the tenant catalog listing.
type ListQuery struct {
	TenantID     uuid.UUID
	Limit        int
	Offset       int
	UpdatedSince *time.Time
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a products repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *repositoryImpl) Save(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

// SaveWithVersion persists the product only when the stored row still carries
// expectedVersion, bumping the version on success. Returns false when another
// transaction won the race.
func (r *repositoryImpl) SaveWithVersion(ctx context.Context, product *models.Product, expectedVersion int) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND tenant_id = ? AND version = ?", product.ID, product.TenantID, expectedVersion).
		Updates(map[string]any{
			"sku":            product.SKU,
			"name":           product.Name,
			"description":    product.Description,
			"price":          product.Price,
			"stock_quantity": product.StockQuantity,
			"image_url":      product.ImageURL,
			"version":        gorm.Expr("version + 1"),
			"updated_at":     time.Now().UTC(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}
	product.Version = expectedVersion + 1
	return true, nil
}

func (r *repositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id).Error
}

// CountOpenOrderReferences counts line items for the product on orders
// that have not reached COMPLETED or CANCELLED.
func (r *repositoryImpl) CountOpenOrderReferences(ctx context.Context, productID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("order_items.product_id = ?", productID).
		Where("orders.status NOT IN ?", []enums.OrderStatus{enums.OrderStatusCompleted, enums.OrderStatusCancelled}).
		Count(&count).Error
	return count, err
}

func (r *repositoryImpl) FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ? AND tenant_id = ?", id, tenantID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repositoryImpl) FindBySKUAndTenant(ctx context.Context, sku string, tenantID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "sku = ? AND tenant_id = ?", sku, tenantID).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repositoryImpl) ListByTenant(ctx context.Context, params ListQuery) ([]models.Product, error) {
	query := r.db.WithContext(ctx).Where("tenant_id = ?", params.TenantID)
	if params.UpdatedSince != nil {
		query = query.Where("updated_at >= ?", *params.UpdatedSince)
	}

	var products []models.Product
	err := query.
		Order("created_at ASC, id ASC").
		Limit(params.Limit).
		Offset(params.Offset).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return products, nil
}
