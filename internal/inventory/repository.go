package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
)

// Repository applies stock movements against the product table. Both
// movements run as single conditional UPDATE statements so concurrent
// checkouts never oversell.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	DecrementStock(ctx context.Context, tenantID, productID uuid.UUID, quantity int, expectedVersion *int) (*models.Product, error)
	IncrementStock(ctx context.Context, tenantID, productID uuid.UUID, quantity int) (*models.Product, error)
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns an inventory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// DecrementStock reserves quantity units of the product, bumping its version.
// When expectedVersion is set the update only applies if the stored row still
// carries that version, which lets checkout reject stale carts.
func (r *repositoryImpl) DecrementStock(ctx context.Context, tenantID, productID uuid.UUID, quantity int, expectedVersion *int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	query := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND tenant_id = ? AND stock_quantity >= ?", productID, tenantID, quantity)
	if expectedVersion != nil {
		query = query.Where("version = ?", *expectedVersion)
	}
	result := query.Updates(map[string]any{
		"stock_quantity": gorm.Expr("stock_quantity - ?", quantity),
		"version":        gorm.Expr("version + 1"),
	})
	if result.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "failed to decrement stock")
	}
	if result.RowsAffected == 0 {
		return nil, r.diagnoseDecrementFailure(ctx, tenantID, productID, quantity, expectedVersion)
	}
	return r.reload(ctx, tenantID, productID)
}

// IncrementStock returns quantity units to the shelf, for example when an
// order is cancelled before pickup.
func (r *repositoryImpl) IncrementStock(ctx context.Context, tenantID, productID uuid.UUID, quantity int) (*models.Product, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	result := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND tenant_id = ?", productID, tenantID).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", quantity),
			"version":        gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, result.Error, "failed to increment stock")
	}
	if result.RowsAffected == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return r.reload(ctx, tenantID, productID)
}

// diagnoseDecrementFailure re-reads the row to report why a conditional
// decrement matched nothing.
func (r *repositoryImpl) diagnoseDecrementFailure(ctx context.Context, tenantID, productID uuid.UUID, quantity int, expectedVersion *int) error {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ? AND tenant_id = ?", productID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to inspect product after decrement")
	}
	if expectedVersion != nil && product.Version != *expectedVersion {
		return pkgerrors.New(pkgerrors.CodeConflict, "product was modified by another transaction").
			WithDetails(map[string]any{
				"product_id":       productID,
				"expected_version": *expectedVersion,
				"current_version":  product.Version,
			})
	}
	if product.StockQuantity < quantity {
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{
				"product_id": productID,
				"requested":  quantity,
				"available":  product.StockQuantity,
			})
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "stock changed concurrently, retry the operation")
}

func (r *repositoryImpl) reload(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ? AND tenant_id = ?", productID, tenantID).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to reload product")
	}
	return &product, nil
}
