package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/config"
	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
	"github.com/louretail/bopis-backend/pkg/security"
)

// Identity is the authenticated caller extracted from a token.
type Identity struct {
	UserID   uuid.UUID
	Role     enums.UserRole
	TenantID *uuid.UUID
}

// Claims is the JWT payload carried by access tokens.
type Claims struct {
	Role     string `json:"role"`
	TenantID string `json:"tenant_id,omitempty"`
	jwt.RegisteredClaims
}

type userFinder interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service issues and verifies access tokens.
type Service interface {
	Login(ctx context.Context, username, password string) (string, *models.User, error)
	IssueToken(user *models.User) (string, error)
	ParseToken(token string) (*Identity, error)
}

type service struct {
	repo userFinder
	cfg  config.JWTConfig
	now  func() time.Time
}

// NewService wires auth dependencies.
func NewService(repo userFinder, cfg config.JWTConfig) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "users repository required")
	}
	if cfg.Secret == "" {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "jwt secret required")
	}
	return &service{repo: repo, cfg: cfg, now: time.Now}, nil
}

func (s *service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	if username == "" || password == "" {
		return "", nil, pkgerrors.New(pkgerrors.CodeValidation, "username and password required")
	}

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
		}
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find user")
	}
	if !user.IsActive {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "account disabled")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return "", nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok {
		return "", nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *service) IssueToken(user *models.User) (string, error) {
	if user == nil {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user required")
	}

	now := s.now().UTC()
	claims := Claims{
		Role: user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.cfg.Expiration())),
		},
	}
	if user.TenantID != nil {
		claims.TenantID = user.TenantID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "sign token")
	}
	return signed, nil
}

func (s *service) ParseToken(tokenString string) (*Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithIssuer(s.cfg.Issuer), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid subject")
	}
	role, err := enums.ParseUserRole(claims.Role)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid role claim")
	}

	identity := &Identity{UserID: userID, Role: role}
	if claims.TenantID != "" {
		tenantID, err := uuid.Parse(claims.TenantID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid tenant claim")
		}
		identity.TenantID = &tenantID
	}
	return identity, nil
}
