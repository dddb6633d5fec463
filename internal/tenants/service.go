package tenants

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/db/models"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
)

// Service defines tenant management operations.
type Service interface {
	Create(ctx context.Context, name string) (*models.Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error)
	GetByName(ctx context.Context, name string) (*models.Tenant, error)
	List(ctx context.Context, limit, offset int) ([]models.Tenant, error)
}

type service struct {
	repo Repository
}

// NewService wires tenant dependencies.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "tenants repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Create(ctx context.Context, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant name required")
	}

	tenant := &models.Tenant{ID: uuid.New(), Name: name}
	if err := s.repo.Create(ctx, tenant); err != nil {
		if pkgerrors.IsUniqueViolation(err, "uq_tenants_name") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "tenant name already in use")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create tenant")
	}
	return tenant, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	tenant, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find tenant")
	}
	return tenant, nil
}

func (s *service) GetByName(ctx context.Context, name string) (*models.Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant name required")
	}
	tenant, err := s.repo.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "tenant not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find tenant by name")
	}
	return tenant, nil
}

func (s *service) List(ctx context.Context, limit, offset int) ([]models.Tenant, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	tenants, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list tenants")
	}
	return tenants, nil
}
