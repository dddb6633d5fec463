package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/internal/auth"
	"github.com/louretail/bopis-backend/internal/notifications"
	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
	"github.com/louretail/bopis-backend/pkg/pagination"
)

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// productLoader resolves catalog products inside a tenant.
type productLoader interface {
	FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Product, error)
}

// staffLister lists a tenant's users for notification fan-out.
type staffLister interface {
	ListByTenant(ctx context.Context, tenantID uuid.UUID, limit, offset int) ([]models.User, error)
}

// notifier fans order events out to staff feeds.
type notifier interface {
	CreateBatch(ctx context.Context, inputs []notifications.CreateInput) error
}

// Page is one page of order history.
type Page struct {
	Orders     []models.Order
	NextCursor string
}

// Service manages carts, order history, and the fulfillment lifecycle.
type Service interface {
	// Cart surface, customers only.
	GetCart(ctx context.Context, userID, tenantID uuid.UUID) (*models.Order, error)
	AddItem(ctx context.Context, userID, tenantID, productID uuid.UUID, quantity int) (*models.Order, error)
	UpdateItemQuantity(ctx context.Context, userID, tenantID, productID uuid.UUID, quantity int) (*models.Order, error)
	RemoveItem(ctx context.Context, userID, tenantID, productID uuid.UUID) (*models.Order, error)

	// History, shared by customers and staff.
	Get(ctx context.Context, identity *auth.Identity, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error)
	ListForTenant(ctx context.Context, tenantID uuid.UUID, statuses []enums.OrderStatus, params pagination.Params) (*Page, error)

	// Picker surface.
	ListFulfillmentQueue(ctx context.Context, tenantID uuid.UUID) ([]models.Order, error)
	StartProcessing(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
	MarkReady(ctx context.Context, tenantID, orderID uuid.UUID, pickerNotes string) (*models.Order, error)

	// Counter surface.
	GetByPickupToken(ctx context.Context, tenantID uuid.UUID, token string) (*models.Order, error)
	ListReadyForPickup(ctx context.Context, tenantID uuid.UUID, laneID *uuid.UUID, unassigned bool) ([]models.Order, error)
	VerificationData(ctx context.Context, tenantID, orderID uuid.UUID) (*Verification, error)
	CompletePickup(ctx context.Context, tenantID, orderID uuid.UUID) (*models.Order, error)
}

type service struct {
	repo     Repository
	products productLoader
	staff    staffLister
	notifier notifier
	tx       txRunner
}

// NewService wires an orders service over its collaborators.
func NewService(repo Repository, products productLoader, staff staffLister, n notifier, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository is required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product loader is required")
	}
	if staff == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "staff lister is required")
	}
	if n == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notifier is required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner is required")
	}
	return &service{
		repo:     repo,
		products: products,
		staff:    staff,
		notifier: n,
		tx:       tx,
	}, nil
}

// GetCart returns the user's open cart in the tenant, creating an empty one
// on first use.
func (s *service) GetCart(ctx context.Context, userID, tenantID uuid.UUID) (*models.Order, error) {
	cart, err := s.repo.FindCart(ctx, userID, tenantID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}

	cart = &models.Order{
		ID:            uuid.New(),
		UserID:        userID,
		TenantID:      tenantID,
		OrderType:     enums.OrderTypeBOPIS,
		Status:        enums.OrderStatusCart,
		PaymentStatus: enums.PaymentStatusUnpaid,
		TotalAmount:   decimal.Zero,
	}
	if err := s.repo.Create(ctx, cart); err != nil {
		// A concurrent request may have created the cart first.
		if pkgerrors.IsUniqueViolation(err, "uq_orders_open_cart") {
			cart, findErr := s.repo.FindCart(ctx, userID, tenantID)
			if findErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, findErr, "failed to load cart")
			}
			return cart, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to create cart")
	}
	return cart, nil
}

// AddItem puts quantity units of the product in the cart. The check covers
// what the cart already holds so repeated adds cannot exceed the shelf.
func (s *service) AddItem(ctx context.Context, userID, tenantID, productID uuid.UUID, quantity int) (*models.Order, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, err := s.GetCart(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	product, err := s.loadProduct(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}

	existing := findItem(cart, productID)
	requested := quantity
	if existing != nil {
		requested += existing.Quantity
	}
	if requested > product.StockQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{
				"product_id": productID,
				"requested":  requested,
				"available":  product.StockQuantity,
			})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if existing != nil {
			existing.Quantity = requested
			if err := repo.SaveItem(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update cart item")
			}
		} else {
			item := models.OrderItem{
				ID:              uuid.New(),
				OrderID:         cart.ID,
				ProductID:       productID,
				Quantity:        quantity,
				PriceAtPurchase: product.Price,
			}
			if err := repo.CreateItem(ctx, &item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to add cart item")
			}
			cart.Items = append(cart.Items, item)
		}
		return s.saveCartTotal(ctx, repo, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// UpdateItemQuantity sets an exact quantity on a cart line. Stock is only
// verified at checkout, so staff restocks do not block cart edits.
func (s *service) UpdateItemQuantity(ctx context.Context, userID, tenantID, productID uuid.UUID, quantity int) (*models.Order, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	cart, err := s.requireCart(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	item := findItem(cart, productID)
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}

	item.Quantity = quantity
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.SaveItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to update cart item")
		}
		return s.saveCartTotal(ctx, repo, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) RemoveItem(ctx context.Context, userID, tenantID, productID uuid.UUID) (*models.Order, error) {
	cart, err := s.requireCart(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	item := findItem(cart, productID)
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not in cart")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to remove cart item")
		}
		remaining := cart.Items[:0]
		for _, it := range cart.Items {
			if it.ID != item.ID {
				remaining = append(remaining, it)
			}
		}
		cart.Items = remaining
		return s.saveCartTotal(ctx, repo, cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// Get loads one order and checks the caller may see it. Customers only reach
// their own orders, staff reach their tenant's.
func (s *service) Get(ctx context.Context, identity *auth.Identity, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load order")
	}
	if err := auth.AuthorizeOrderAccess(identity, order.UserID, order.TenantID); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) ListForUser(ctx context.Context, userID uuid.UUID, params pagination.Params) (*Page, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListForUser(ctx, UserListQuery{UserID: userID, Limit: limit + 1, Cursor: cursor})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list orders")
	}
	return buildPage(rows, limit), nil
}

func (s *service) ListForTenant(ctx context.Context, tenantID uuid.UUID, statuses []enums.OrderStatus, params pagination.Params) (*Page, error) {
	for _, status := range statuses {
		if !status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status filter")
		}
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(params.Limit)
	rows, err := s.repo.ListForTenant(ctx, TenantListQuery{
		TenantID: tenantID,
		Statuses: statuses,
		Limit:    limit + 1,
		Cursor:   cursor,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to list orders")
	}
	return buildPage(rows, limit), nil
}

func (s *service) requireCart(ctx context.Context, userID, tenantID uuid.UUID) (*models.Order, error) {
	cart, err := s.repo.FindCart(ctx, userID, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load cart")
	}
	return cart, nil
}

func (s *service) loadProduct(ctx context.Context, tenantID, productID uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByIDAndTenant(ctx, productID, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
	}
	return product, nil
}

// saveCartTotal recomputes the cart total from its line snapshots.
func (s *service) saveCartTotal(ctx context.Context, repo Repository, cart *models.Order) error {
	total := decimal.Zero
	for _, item := range cart.Items {
		total = total.Add(item.PriceAtPurchase.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	cart.TotalAmount = total
	if err := repo.Save(ctx, cart); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to save cart")
	}
	return nil
}

func findItem(order *models.Order, productID uuid.UUID) *models.OrderItem {
	for i := range order.Items {
		if order.Items[i].ProductID == productID {
			return &order.Items[i]
		}
	}
	return nil
}

func buildPage(rows []models.Order, limit int) *Page {
	next := ""
	if len(rows) > limit {
		rows = rows[:limit]
		last := rows[len(rows)-1]
		next = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}
	return &Page{Orders: rows, NextCursor: next}
}
