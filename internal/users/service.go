package users

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/config"
	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
	"github.com/louretail/bopis-backend/pkg/security"
	"github.com/louretail/bopis-backend/pkg/validate"
)

// Service defines user account operations.
type Service interface {
	Register(ctx context.Context, input RegisterInput) (*models.User, error)
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.User, error)
	SetActive(ctx context.Context, userID uuid.UUID, active bool) (*models.User, error)
}

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Username string     `json:"username" validate:"required,min=3,max=50"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=8"`
	Role     string     `json:"role" validate:"required"`
	TenantID *uuid.UUID `json:"tenant_id"`
}

// UpdateProfileInput carries optional profile changes. Password changes require
// the current password.
type UpdateProfileInput struct {
	Username        *string `json:"username" validate:"omitempty,min=3,max=50"`
	Email           *string `json:"email" validate:"omitempty,email"`
	NewPassword     *string `json:"new_password" validate:"omitempty,min=8"`
	CurrentPassword *string `json:"current_password"`
}

type service struct {
	repo        Repository
	passwordCfg config.PasswordConfig
}

// NewService wires user dependencies.
func NewService(repo Repository, passwordCfg config.PasswordConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg}, nil
}

func (s *service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	role, err := enums.ParseUserRole(input.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role")
	}
	if role.RequiresTenant() && (input.TenantID == nil || *input.TenantID == uuid.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required for this role")
	}

	hash, err := security.HashPassword(input.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         role,
		TenantID:     input.TenantID,
		IsActive:     true,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		switch {
		case pkgerrors.IsUniqueViolation(err, "uq_users_username"):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
		case pkgerrors.IsUniqueViolation(err, "uq_users_email"):
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already taken")
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
	}
	return user, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user")
	}
	return user, nil
}

func (s *service) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "username required")
	}
	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user by username")
	}
	return user, nil
}

func (s *service) ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.User, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	users, err := s.repo.ListByTenant(ctx, tenantID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	return users, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*models.User, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}

	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	if input.Username != nil && *input.Username != user.Username {
		if err := s.ensureUsernameFree(ctx, *input.Username); err != nil {
			return nil, err
		}
		user.Username = *input.Username
	}
	if input.Email != nil && *input.Email != user.Email {
		if err := s.ensureEmailFree(ctx, *input.Email); err != nil {
			return nil, err
		}
		user.Email = *input.Email
	}
	if input.NewPassword != nil {
		if input.CurrentPassword == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "current password required to set a new password")
		}
		ok, err := security.VerifyPassword(*input.CurrentPassword, user.PasswordHash)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "incorrect current password")
		}
		hash, err := security.HashPassword(*input.NewPassword, s.passwordCfg)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
		}
		user.PasswordHash = hash
	}

	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save user")
	}
	return user, nil
}

func (s *service) SetActive(ctx context.Context, userID uuid.UUID, active bool) (*models.User, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.IsActive = active
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save user")
	}
	return user, nil
}

func (s *service) ensureUsernameFree(ctx context.Context, username string) error {
	_, err := s.repo.FindByUsername(ctx, username)
	if err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "username already taken")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check username")
}

func (s *service) ensureEmailFree(ctx context.Context, email string) error {
	_, err := s.repo.FindByEmail(ctx, email)
	if err == nil {
		return pkgerrors.New(pkgerrors.CodeConflict, "email already taken")
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check email")
}
