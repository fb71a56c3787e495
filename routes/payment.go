package routes

import (
	"github.com/gin-gonic/gin"
	paymentControllers "github.com/hamza-damra/AgrifinPal-sub000/controllers/payment"
	"github.com/hamza-damra/AgrifinPal-sub000/middleware"
)

func SetupPaymentRoutes(r *gin.Engine, deps Deps) {
	payments := r.Group("/payments")
	payments.Use(middleware.ValidateAPIKey)
	{
		// Invoked by the payment collaborator after a confirmed payment.
		payments.POST("/callback", paymentControllers.PaymentSucceededHandler(
			deps.Materializer, deps.Finalizer, deps.Events, deps.Log))
	}
}
