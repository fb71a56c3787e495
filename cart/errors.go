package cart

import (
	"errors"

	"github.com/hamza-damra/AgrifinPal-sub000/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrCartNotFound       = errors.New("no active cart for user")
	ErrCartItemNotFound   = errors.New("cart item not found")
	ErrUnauthorizedAccess = errors.New("cart item does not belong to the caller's active cart")
)

// ProductAlreadyInCartError carries the existing line so clients can merge
// quantities on their side instead of guessing state.
type ProductAlreadyInCartError struct {
	Existing models.CartItem
}

func (e *ProductAlreadyInCartError) Error() string {
	return "product is already in the cart"
}
