package paymentControllers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hamza-damra/AgrifinPal-sub000/cart"
	"github.com/hamza-damra/AgrifinPal-sub000/checkout"
	orderControllers "github.com/hamza-damra/AgrifinPal-sub000/controllers/order"
	"github.com/hamza-damra/AgrifinPal-sub000/events"
	"github.com/hamza-damra/AgrifinPal-sub000/inventory"
	"go.uber.org/zap"
)

// PaymentSucceededInput is what the payment collaborator posts after an
// out-of-band confirmation. The gateway protocol itself lives outside this
// service; only the reference and the user matter here.
type PaymentSucceededInput struct {
	UserID           string `json:"user_id" binding:"required"`
	PaymentReference string `json:"payment_reference" binding:"required"`
}

// POST /payments/callback
//
// Materializes the order from the cart, then retires the cart. Gateways
// redeliver callbacks, so both steps tolerate being run again for the same
// payment reference.
func PaymentSucceededHandler(mat *checkout.Materializer, fin *checkout.Finalizer, pub *events.Publisher, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var input PaymentSucceededInput
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input: " + err.Error()})
			return
		}

		ctx := c.Request.Context()

		order, err := mat.CreateOrderFromCart(ctx, input.UserID, input.PaymentReference)
		if err != nil {
			var insufficient *inventory.InsufficientInventoryError
			switch {
			case errors.Is(err, cart.ErrCartNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "No active cart for user"})
			case errors.Is(err, checkout.ErrCartEmpty):
				c.JSON(http.StatusBadRequest, gin.H{"error": "Cart is empty"})
			case errors.As(err, &insufficient):
				c.JSON(http.StatusConflict, gin.H{
					"error": fmt.Sprintf("only %d units available", insufficient.Available),
				})
			default:
				log.Error("order materialization failed",
					zap.String("user_id", input.UserID),
					zap.String("payment_reference", input.PaymentReference),
					zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create order"})
			}
			return
		}

		if err := fin.Finalize(ctx, input.UserID, order.ID); err != nil {
			// Payment already succeeded and the order exists: this is an
			// operational failure, not something the gateway can fix by
			// showing the buyer an error.
			log.Error("checkout finalization failed",
				zap.String("user_id", input.UserID),
				zap.String("order_ref", order.OrderRef),
				zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":     "Order recorded but cart retirement incomplete",
				"order_ref": order.OrderRef,
			})
			return
		}

		orderControllers.BroadcastOrderPlaced(order)
		pub.PublishOrderPlaced(ctx, order)

		c.JSON(http.StatusOK, gin.H{
			"message": "Order placed successfully",
			"order":   order,
		})
	}
}
