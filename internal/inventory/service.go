package inventory

import (
	"context"

	"github.com/google/uuid"

	"github.com/louretail/bopis-backend/pkg/db/models"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
)

// Service exposes manual stock movements to staff surfaces. Checkout and
// point of sale bypass it and drive the repository inside their own
// transactions.
type Service interface {
	Decrement(ctx context.Context, tenantID, productID uuid.UUID, quantity int, expectedVersion *int) (*models.Product, error)
	Restock(ctx context.Context, tenantID, productID uuid.UUID, quantity int) (*models.Product, error)
}

type service struct {
	repo Repository
}

// NewService wires an inventory service over the given repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository is required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Decrement(ctx context.Context, tenantID, productID uuid.UUID, quantity int, expectedVersion *int) (*models.Product, error) {
	return s.repo.DecrementStock(ctx, tenantID, productID, quantity, expectedVersion)
}

func (s *service) Restock(ctx context.Context, tenantID, productID uuid.UUID, quantity int) (*models.Product, error) {
	return s.repo.IncrementStock(ctx, tenantID, productID, quantity)
}
