package checkout

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamza-damra/AgrifinPal-sub000/cart"
	"github.com/hamza-damra/AgrifinPal-sub000/lock"
	"github.com/hamza-damra/AgrifinPal-sub000/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrOrderNotFound = errors.New("order not found")

	// ErrFinalizationIncomplete means the retirement did not converge within
	// the retry budget. The order exists and payment succeeded, so this must
	// page an operator instead of reporting success.
	ErrFinalizationIncomplete = errors.New("cart retirement did not converge")
)

// maxFinalizeAttempts bounds the verification loop: the initial retirement
// plus two retries to absorb add-to-cart requests racing in from other
// processes.
const maxFinalizeAttempts = 3

// Finalizer retires a cart after a successful payment: items removed and the
// cart marked completed in one transaction, then a fresh active cart
// provisioned for the user. The whole operation is idempotent; running it
// twice for the same order changes nothing the second time.
type Finalizer struct {
	db    *gorm.DB
	carts *cart.Manager
	locks lock.UserLocker
	log   *zap.Logger
}

func NewFinalizer(db *gorm.DB, carts *cart.Manager, locks lock.UserLocker, log *zap.Logger) *Finalizer {
	return &Finalizer{db: db, carts: carts, locks: locks, log: log}
}

// Finalize runs the ACTIVE -> COMPLETED -> new ACTIVE transition for the
// cart the order was materialized from.
func (f *Finalizer) Finalize(ctx context.Context, userID string, orderID uint) error {
	unlock, err := f.locks.Lock(ctx, userID)
	if err != nil {
		return err
	}
	defer unlock()

	var order models.Order
	err = f.db.WithContext(ctx).First(&order, "id = ? AND user_id = ?", orderID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrOrderNotFound
	}
	if err != nil {
		return fmt.Errorf("fetch order: %w", err)
	}

	// A prior call (possibly one that raced this one) already retired the
	// source cart. Make sure the successor exists and stop without touching
	// anything the user added to it since.
	var source models.Cart
	err = f.db.WithContext(ctx).First(&source, "cart_id = ?", order.CartID).Error
	if err == nil && source.Status == models.CartStatusCompleted {
		_, err := f.carts.EnsureActiveCart(ctx, userID)
		return err
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("fetch source cart: %w", err)
	}

	for attempt := 1; attempt <= maxFinalizeAttempts; attempt++ {
		if err := f.retire(ctx, userID); err != nil && !errors.Is(err, cart.ErrCartNotFound) {
			return err
		}

		if _, err := f.carts.EnsureActiveCart(ctx, userID); err != nil {
			return err
		}

		clean, err := f.verify(ctx, userID)
		if err != nil {
			return err
		}
		if clean {
			if attempt > 1 {
				f.log.Info("cart retirement converged",
					zap.String("user_id", userID), zap.Int("attempts", attempt))
			}
			return nil
		}

		f.log.Warn("residual items after cart retirement, retrying",
			zap.String("user_id", userID),
			zap.Uint("order_id", orderID),
			zap.Int("attempt", attempt))
	}

	return ErrFinalizationIncomplete
}

// retire removes the active cart's items and marks it completed in a single
// transaction, so no reader ever sees a half-retired cart.
func (f *Finalizer) retire(ctx context.Context, userID string) error {
	return f.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c models.Cart
		err := tx.Where("user_id = ? AND status = ?", userID, models.CartStatusActive).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cart.ErrCartNotFound
		}
		if err != nil {
			return err
		}

		if err := tx.Where("cart_id = ?", c.CartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return tx.Model(&c).Updates(map[string]interface{}{
			"status":         models.CartStatusCompleted,
			"total_price":    0,
			"total_quantity": 0,
		}).Error
	})
}

// verify checks the postcondition: the user holds no items in any active
// cart.
func (f *Finalizer) verify(ctx context.Context, userID string) (bool, error) {
	var count int64
	err := f.db.WithContext(ctx).Model(&models.CartItem{}).
		Joins("JOIN carts ON carts.cart_id = cart_items.cart_id").
		Where("carts.user_id = ? AND carts.status = ?", userID, models.CartStatusActive).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}
