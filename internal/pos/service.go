package pos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/louretail/bopis-backend/internal/inventory"
	"github.com/louretail/bopis-backend/internal/orders"
	"github.com/louretail/bopis-backend/pkg/config"
	"github.com/louretail/bopis-backend/pkg/db/models"
	"github.com/louretail/bopis-backend/pkg/enums"
	pkgerrors "github.com/louretail/bopis-backend/pkg/errors"
	"github.com/louretail/bopis-backend/pkg/metrics"
	"github.com/louretail/bopis-backend/pkg/redis"
	"github.com/louretail/bopis-backend/pkg/validate"
)

// idempotencyScope namespaces point of sale keys in Redis.
const idempotencyScope = "pos_sale"

// inProgressMarker occupies an idempotency key while the sale transaction
// runs. It is replaced with the order id on success.
const inProgressMarker = "pending"

// txRunner runs a function inside a database transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// productLoader resolves catalog products inside a tenant.
type productLoader interface {
	FindByIDAndTenant(ctx context.Context, id, tenantID uuid.UUID) (*models.Product, error)
}

// SaleItem is one scanned line at the register.
type SaleItem struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,gt=0"`
}

// SaleInput carries a register sale. IdempotencyKey lets flaky terminals
// retry without double-charging stock.
type SaleInput struct {
	Items          []SaleItem `json:"items" validate:"required,min=1,dive"`
	IdempotencyKey string     `json:"idempotency_key"`
}

// Service records walk-in sales at the register.
type Service interface {
	Sale(ctx context.Context, staffUserID, tenantID uuid.UUID, in SaleInput) (*models.Order, error)
}

type service struct {
	orders    orders.Repository
	inventory inventory.Repository
	products  productLoader
	store     redis.IdempotencyStore
	tx        txRunner
	metrics   *metrics.POSMetrics
	cfg       config.POSConfig
}

// NewService wires a point of sale service over its collaborators. Metrics
// may be nil in tests.
func NewService(ordersRepo orders.Repository, inventoryRepo inventory.Repository, products productLoader, store redis.IdempotencyStore, tx txRunner, m *metrics.POSMetrics, cfg config.POSConfig) (Service, error) {
	if ordersRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "orders repository is required")
	}
	if inventoryRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "inventory repository is required")
	}
	if products == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "product loader is required")
	}
	if store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "idempotency store is required")
	}
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner is required")
	}
	return &service{
		orders:    ordersRepo,
		inventory: inventoryRepo,
		products:  products,
		store:     store,
		tx:        tx,
		metrics:   m,
		cfg:       cfg,
	}, nil
}

// Sale creates a completed, paid order for goods sold over the counter and
// deducts their stock in one transaction.
func (s *service) Sale(ctx context.Context, staffUserID, tenantID uuid.UUID, in SaleInput) (*models.Order, error) {
	if err := validate.Struct(in); err != nil {
		return nil, err
	}

	key := ""
	if in.IdempotencyKey != "" {
		key = s.store.IdempotencyKey(idempotencyScope, in.IdempotencyKey)
		if replay, err := s.findReplay(ctx, key); err != nil {
			return nil, err
		} else if replay != nil {
			s.metrics.IncReplay()
			return replay, nil
		}
		claimed, err := s.store.SetNX(ctx, key, inProgressMarker, s.cfg.IdempotencyTTL)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to claim idempotency key")
		}
		if !claimed {
			// Another terminal request holds the key right now.
			return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "a sale with this idempotency key is already in progress")
		}
	}

	order, err := s.runSale(ctx, staffUserID, tenantID, in)
	if key != "" {
		if err != nil {
			if delErr := s.store.Del(ctx, key); delErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, delErr, "failed to release idempotency key")
			}
		} else if setErr := s.store.Set(ctx, key, order.ID.String(), s.cfg.IdempotencyTTL); setErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, setErr, "failed to record idempotency key")
		}
	}
	if err != nil {
		s.metrics.IncSale("error")
		return nil, err
	}
	s.metrics.IncSale("success")
	return order, nil
}

// findReplay returns the previously created order when the key already holds
// a completed sale.
func (s *service) findReplay(ctx context.Context, key string) (*models.Order, error) {
	value, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to check idempotency key")
	}
	if value == inProgressMarker {
		return nil, pkgerrors.New(pkgerrors.CodeIdempotency, "a sale with this idempotency key is already in progress")
	}
	orderID, err := uuid.Parse(value)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt idempotency record")
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load replayed sale")
	}
	return order, nil
}

func (s *service) runSale(ctx context.Context, staffUserID, tenantID uuid.UUID, in SaleInput) (*models.Order, error) {
	var completed *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		inventoryRepo := s.inventory.WithTx(tx)

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(in.Items))
		orderID := uuid.New()
		for _, line := range in.Items {
			product, err := s.products.FindByIDAndTenant(ctx, line.ProductID, tenantID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
						WithDetails(map[string]any{"product_id": line.ProductID})
				}
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to load product")
			}
			if _, err := inventoryRepo.DecrementStock(ctx, tenantID, line.ProductID, line.Quantity, nil); err != nil {
				return err
			}
			items = append(items, models.OrderItem{
				ID:              uuid.New(),
				OrderID:         orderID,
				ProductID:       line.ProductID,
				Quantity:        line.Quantity,
				PriceAtPurchase: product.Price,
			})
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
		}

		order := &models.Order{
			ID:            orderID,
			UserID:        staffUserID,
			TenantID:      tenantID,
			OrderType:     enums.OrderTypePOSSale,
			Status:        enums.OrderStatusCompleted,
			PaymentStatus: enums.PaymentStatusPaid,
			TotalAmount:   total,
			Items:         items,
		}
		if err := ordersRepo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to record sale")
		}
		completed = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return completed, nil
}
