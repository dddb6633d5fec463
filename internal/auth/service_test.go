package auth

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/pkg/config"
	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
	"github.com/louretail/bopis-backend/pkg/security"
)

var testJWTCfg = config.JWTConfig{
	Secret:            "test-secret",
	Issuer:            "bopis-test",
	ExpirationMinutes: 60,
}

var testPasswordCfg = config.PasswordConfig{
	ArgonMemoryKB:    32768,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

type fakeUserFinder struct {
	user *models.User
}

func (f *fakeUserFinder) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	if f.user != nil && f.user.Username == username {
		return f.user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func stubRepo(user *models.User) userFinder {
	return &fakeUserFinder{user: user}
}

func TestIssueAndParseTokenRoundTrip(t *testing.T) {
	tenantID := uuid.New()
	user := &models.User{
		ID:       uuid.New(),
		Role:     enums.UserRoleCounter,
		TenantID: &tenantID,
	}

	svc, err := NewService(stubRepo(nil), testJWTCfg)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}

	token, err := svc.IssueToken(user)
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	identity, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if identity.UserID != user.ID {
		t.Fatalf("unexpected user id %s", identity.UserID)
	}
	if identity.Role != enums.UserRoleCounter {
		t.Fatalf("unexpected role %s", identity.Role)
	}
	if identity.TenantID == nil || *identity.TenantID != tenantID {
		t.Fatal("expected tenant id to survive the round trip")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	svc, _ := NewService(stubRepo(nil), testJWTCfg)
	other, _ := NewService(stubRepo(nil), config.JWTConfig{
		Secret:            "different",
		Issuer:            testJWTCfg.Issuer,
		ExpirationMinutes: 60,
	})

	token, err := other.IssueToken(&models.User{ID: uuid.New(), Role: enums.UserRoleCustomer})
	if err != nil {
		t.Fatalf("IssueToken failed: %v", err)
	}

	if _, err := svc.ParseToken(token); err == nil {
		t.Fatal("expected token signed with a different secret to be rejected")
	}
}

func TestLoginVerifiesPassword(t *testing.T) {
	hash, err := security.HashPassword("correct-horse-1", testPasswordCfg)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     "jo",
		PasswordHash: hash,
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}

	svc, _ := NewService(stubRepo(user), testJWTCfg)

	token, got, err := svc.Login(context.Background(), "jo", "correct-horse-1")
	if err != nil {
		t.Fatalf("unexpected login error: %v", err)
	}
	if token == "" || got.ID != user.ID {
		t.Fatal("expected token and matching user")
	}

	if _, _, err := svc.Login(context.Background(), "jo", "wrong"); err == nil {
		t.Fatal("expected login failure with wrong password")
	}
}

func TestLoginInactiveAccount(t *testing.T) {
	hash, _ := security.HashPassword("correct-horse-1", testPasswordCfg)
	user := &models.User{ID: uuid.New(), Username: "jo", PasswordHash: hash, IsActive: false}

	svc, _ := NewService(stubRepo(user), testJWTCfg)
	_, _, err := svc.Login(context.Background(), "jo", "correct-horse-1")
	if err == nil {
		t.Fatal("expected login failure for inactive account")
	}
	if code := pkgerrors.As(err).Code(); code != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized code, got %s", code)
	}
}

func TestAuthorizeTenant(t *testing.T) {
	tenantID := uuid.New()
	otherTenant := uuid.New()

	super := &Identity{UserID: uuid.New(), Role: enums.UserRoleSuperAdmin}
	if err := AuthorizeTenant(super, tenantID); err != nil {
		t.Fatalf("super admin should pass: %v", err)
	}

	staff := &Identity{UserID: uuid.New(), Role: enums.UserRolePicker, TenantID: &tenantID}
	if err := AuthorizeTenant(staff, tenantID); err != nil {
		t.Fatalf("matching tenant should pass: %v", err)
	}
	if err := AuthorizeTenant(staff, otherTenant); err == nil {
		t.Fatal("expected cross-tenant access to be denied")
	}
}

func TestAuthorizeOrderAccess(t *testing.T) {
	tenantID := uuid.New()
	ownerID := uuid.New()

	customer := &Identity{UserID: ownerID, Role: enums.UserRoleCustomer, TenantID: &tenantID}
	if err := AuthorizeOrderAccess(customer, ownerID, tenantID); err != nil {
		t.Fatalf("owner should pass: %v", err)
	}
	if err := AuthorizeOrderAccess(customer, uuid.New(), tenantID); err == nil {
		t.Fatal("expected other customer's order to be denied")
	}

	counter := &Identity{UserID: uuid.New(), Role: enums.UserRoleCounter, TenantID: &tenantID}
	if err := AuthorizeOrderAccess(counter, ownerID, tenantID); err != nil {
		t.Fatalf("tenant staff should pass: %v", err)
	}
}
