package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hamza-damra/AgrifinPal-sub000/cart"
	"github.com/hamza-damra/AgrifinPal-sub000/inventory"
	"github.com/hamza-damra/AgrifinPal-sub000/lock"
	"github.com/hamza-damra/AgrifinPal-sub000/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrCartEmpty = errors.New("cart is empty")

// Materializer turns the current active cart into an immutable Order plus
// OrderItem snapshot. It never mutates the cart: materialization and
// retirement are separate steps so a crash between them leaves the cart
// intact for retry.
type Materializer struct {
	db    *gorm.DB
	locks lock.UserLocker
	log   *zap.Logger
}

func NewMaterializer(db *gorm.DB, locks lock.UserLocker, log *zap.Logger) *Materializer {
	return &Materializer{db: db, locks: locks, log: log}
}

// CreateOrderFromCart snapshots the user's active cart into an order tied to
// the payment reference. Calling it again with the same reference (webhook
// retries) returns the already-created order instead of a duplicate.
//
// Stock is claimed here: each line decrements Product.Stock with a
// conditional update, so two buyers cannot both check out the last crate.
func (m *Materializer) CreateOrderFromCart(ctx context.Context, userID, paymentReference string) (*models.Order, error) {
	if existing, err := m.orderByPaymentReference(ctx, paymentReference); err == nil {
		m.log.Info("order already materialized for payment reference",
			zap.String("payment_reference", paymentReference),
			zap.Uint("order_id", existing.ID))
		return existing, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	// cart mutations serialize on the user lock; holding it here keeps the
	// snapshot consistent with the cart the buyer last saw
	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var c models.Cart
	err = m.db.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND status = ?", userID, models.CartStatusActive).
		First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, cart.ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch active cart: %w", err)
	}
	if len(c.Items) == 0 {
		return nil, ErrCartEmpty
	}

	order := &models.Order{
		UserID:           userID,
		CartID:           c.CartID,
		OrderRef:         generateOrderRef(),
		PaymentReference: paymentReference,
		Status:           models.OrderStatusPaid,
		PaymentStatus:    models.PaymentStatusCompleted,
		OrderDate:        time.Now(),
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var total float64
		for _, item := range c.Items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
				UpdateColumn("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// product deleted or outsold since it was added to the cart
				return m.insufficientStock(tx, item)
			}

			total += item.UnitPrice * float64(item.Quantity)
			order.Items = append(order.Items, models.OrderItem{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				FarmName:    item.FarmName,
				Unit:        item.Unit,
				UnitPrice:   item.UnitPrice,
				Quantity:    item.Quantity,
			})
		}

		order.TotalAmount = total
		return tx.Create(order).Error
	})
	if err != nil {
		if isUniqueViolation(err) {
			// a concurrent webhook delivery won the insert; hand back its order
			return m.orderByPaymentReference(ctx, paymentReference)
		}
		return nil, err
	}

	m.log.Info("order materialized",
		zap.String("user_id", userID),
		zap.String("order_ref", order.OrderRef),
		zap.Float64("total_amount", order.TotalAmount),
		zap.Int("items", len(order.Items)))
	return order, nil
}

func (m *Materializer) orderByPaymentReference(ctx context.Context, paymentReference string) (*models.Order, error) {
	var order models.Order
	err := m.db.WithContext(ctx).Preload("Items").
		Where("payment_reference = ?", paymentReference).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (m *Materializer) insufficientStock(tx *gorm.DB, item models.CartItem) error {
	var product models.Product
	if err := tx.First(&product, "id = ?", item.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.ErrProductNotFound
		}
		return err
	}
	return &inventory.InsufficientInventoryError{
		ProductID: item.ProductID,
		Requested: item.Quantity,
		Available: product.Stock,
	}
}

// generateOrderRef builds a unique human-scannable reference, e.g.
// 20250908130500-<uuid4>.
func generateOrderRef() string {
	return time.Now().Format("20060102150405") + "-" + uuid.NewString()
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
