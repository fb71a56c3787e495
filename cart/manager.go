package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hamza-damra/AgrifinPal-sub000/inventory"
	"github.com/hamza-damra/AgrifinPal-sub000/lock"
	"github.com/hamza-damra/AgrifinPal-sub000/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager owns the per-user active cart: creation with the single-active-cart
// guarantee, line mutations with price snapshots, and derived totals.
type Manager struct {
	db    *gorm.DB
	guard *inventory.Guard
	locks lock.UserLocker
	log   *zap.Logger
}

func NewManager(db *gorm.DB, guard *inventory.Guard, locks lock.UserLocker, log *zap.Logger) *Manager {
	return &Manager{db: db, guard: guard, locks: locks, log: log}
}

// GetOrCreateActiveCart returns the user's active cart, creating one if
// absent. Safe under concurrent calls for the same user: the fast path is a
// plain lookup, the slow path re-checks under the user lock before inserting,
// and the unique partial index on (user_id, status='active') catches races
// from other processes.
func (m *Manager) GetOrCreateActiveCart(ctx context.Context, userID string) (*models.Cart, error) {
	cart, err := m.activeCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	return m.EnsureActiveCart(ctx, userID)
}

// EnsureActiveCart is the creation path without locking. Callers must hold
// the user's lock (GetOrCreateActiveCart does; the checkout finalizer holds
// it across the whole retirement).
func (m *Manager) EnsureActiveCart(ctx context.Context, userID string) (*models.Cart, error) {
	// another request may have created the cart while we waited on the lock
	cart, err := m.activeCart(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, err
	}

	fresh := &models.Cart{UserID: userID, Status: models.CartStatusActive}
	if err := m.db.WithContext(ctx).Create(fresh).Error; err != nil {
		if isUniqueViolation(err) {
			// lost the insert race to another process; return the winner's cart
			m.log.Debug("active cart insert lost race", zap.String("user_id", userID))
			return m.activeCart(ctx, userID)
		}
		if isForeignKeyViolation(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("create cart: %w", err)
	}

	m.log.Info("created active cart", zap.String("user_id", userID), zap.Uint("cart_id", fresh.CartID))
	return fresh, nil
}

// ActiveCart returns the user's active cart with its items loaded.
func (m *Manager) ActiveCart(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := m.db.WithContext(ctx).Preload("Items").
		Where("user_id = ? AND status = ?", userID, models.CartStatusActive).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch active cart: %w", err)
	}
	return &cart, nil
}

// AddItem inserts a new line with a price snapshot taken from the catalog.
// Re-adding a product that is already in the cart is rejected with the
// existing line attached, never merged silently.
func (m *Manager) AddItem(ctx context.Context, userID string, productID uint, quantity int) (*models.CartItem, error) {
	product, err := m.guard.Fetch(ctx, productID, quantity)
	if err != nil {
		return nil, err
	}

	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := m.EnsureActiveCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	item := &models.CartItem{
		CartID:      cart.CartID,
		ProductID:   product.ID,
		ProductName: product.Name,
		FarmName:    product.FarmName,
		Unit:        product.Unit,
		UnitPrice:   product.Price,
		Quantity:    quantity,
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.CartItem
		err := tx.Where("cart_id = ? AND product_id = ?", cart.CartID, productID).First(&existing).Error
		if err == nil {
			return &ProductAlreadyInCartError{Existing: existing}
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if err := tx.Create(item).Error; err != nil {
			if isUniqueViolation(err) {
				// same line raced in from another process
				if e := tx.Where("cart_id = ? AND product_id = ?", cart.CartID, productID).First(&existing).Error; e == nil {
					return &ProductAlreadyInCartError{Existing: existing}
				}
			}
			return fmt.Errorf("add cart item: %w", err)
		}
		return m.recomputeTotals(tx, cart.CartID)
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// UpdateItem changes a line's quantity, refreshing the price snapshot the
// same way a fresh add would. The item must belong to the caller's active
// cart.
func (m *Manager) UpdateItem(ctx context.Context, userID string, cartItemID uint, quantity int) (*models.CartItem, error) {
	if quantity < 1 {
		return nil, inventory.ErrInvalidQuantity
	}

	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cart, err := m.activeCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var item models.CartItem
	if err := m.db.WithContext(ctx).First(&item, "id = ?", cartItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("fetch cart item: %w", err)
	}
	if item.CartID != cart.CartID {
		return nil, ErrUnauthorizedAccess
	}

	product, err := m.guard.Fetch(ctx, item.ProductID, quantity)
	if err != nil {
		return nil, err
	}

	item.Quantity = quantity
	item.UnitPrice = product.Price

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&item).Error; err != nil {
			return err
		}
		return m.recomputeTotals(tx, cart.CartID)
	})
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// RemoveItem deletes a single line. Returns false when the item does not
// exist or is not in the caller's active cart.
func (m *Manager) RemoveItem(ctx context.Context, userID string, cartItemID uint) (bool, error) {
	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return false, err
	}
	defer unlock()

	cart, err := m.activeCart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	removed := false
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND cart_id = ?", cartItemID, cart.CartID).Delete(&models.CartItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return m.recomputeTotals(tx, cart.CartID)
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

// Clear removes every line from the user's active cart and zeroes totals.
// Clearing an already empty cart is a no-op returning true; only a missing
// cart returns false.
func (m *Manager) Clear(ctx context.Context, userID string) (bool, error) {
	unlock, err := m.locks.Lock(ctx, userID)
	if err != nil {
		return false, err
	}
	defer unlock()

	cart, err := m.activeCart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("cart_id = ?", cart.CartID).Delete(&models.CartItem{}).Error; err != nil {
			return err
		}
		return m.recomputeTotals(tx, cart.CartID)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsInCart reports whether the product has a line in the user's active cart.
func (m *Manager) IsInCart(ctx context.Context, userID string, productID uint) (bool, error) {
	cart, err := m.activeCart(ctx, userID)
	if errors.Is(err, ErrCartNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var count int64
	err = m.db.WithContext(ctx).Model(&models.CartItem{}).
		Where("cart_id = ? AND product_id = ?", cart.CartID, productID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (m *Manager) activeCart(ctx context.Context, userID string) (*models.Cart, error) {
	var cart models.Cart
	err := m.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.CartStatusActive).
		First(&cart).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetch active cart: %w", err)
	}
	return &cart, nil
}

// recomputeTotals always derives totals from the full item set so they can
// never drift from the lines.
func (m *Manager) recomputeTotals(tx *gorm.DB, cartID uint) error {
	var t struct {
		Price    float64
		Quantity int
	}
	if err := tx.Model(&models.CartItem{}).
		Select("COALESCE(SUM(unit_price * quantity), 0) AS price, COALESCE(SUM(quantity), 0) AS quantity").
		Where("cart_id = ?", cartID).
		Scan(&t).Error; err != nil {
		return err
	}
	return tx.Model(&models.Cart{}).Where("cart_id = ?", cartID).
		Updates(map[string]interface{}{"total_price": t.Price, "total_quantity": t.Quantity}).Error
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}

func isForeignKeyViolation(err error) bool {
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return true
	}
	return strings.Contains(err.Error(), "foreign key")
}
