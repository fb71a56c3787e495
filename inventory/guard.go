package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/hamza-damra/AgrifinPal-sub000/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrProductUnavailable = errors.New("product is not available for sale")
	ErrInvalidQuantity    = errors.New("quantity must be at least 1")
)

// InsufficientInventoryError reports how much stock is actually left so the
// caller can show an actionable message.
type InsufficientInventoryError struct {
	ProductID uint
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("only %d units available (requested %d)", e.Available, e.Requested)
}

// Guard answers "is this quantity purchasable right now?" against the catalog.
// It is a read-only check: nothing is reserved, so the answer only holds at
// the time of the check. Stock is actually claimed when the order is
// materialized.
type Guard struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewGuard(db *gorm.DB, log *zap.Logger) *Guard {
	return &Guard{db: db, log: log}
}

// Fetch validates the product against the requested quantity and returns it
// so callers can copy its price snapshot.
func (g *Guard) Fetch(ctx context.Context, productID uint, quantity int) (*models.Product, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	var product models.Product
	if err := g.db.WithContext(ctx).First(&product, "id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("fetch product %d: %w", productID, err)
	}

	if !product.Available {
		return nil, ErrProductUnavailable
	}

	if product.Stock < quantity {
		g.log.Debug("inventory check rejected",
			zap.Uint("product_id", productID),
			zap.Int("requested", quantity),
			zap.Int("available", product.Stock))
		return nil, &InsufficientInventoryError{
			ProductID: productID,
			Requested: quantity,
			Available: product.Stock,
		}
	}

	return &product, nil
}

// CheckAvailable is Fetch without the product, for callers that only need a
// yes/no answer.
func (g *Guard) CheckAvailable(ctx context.Context, productID uint, quantity int) error {
	_, err := g.Fetch(ctx, productID, quantity)
	return err
}
