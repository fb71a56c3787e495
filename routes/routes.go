package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/hamza-damra/AgrifinPal-sub000/cart"
	"github.com/hamza-damra/AgrifinPal-sub000/checkout"
	"github.com/hamza-damra/AgrifinPal-sub000/events"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps carries everything the route groups wire handlers to.
type Deps struct {
	DB           *gorm.DB
	Carts        *cart.Manager
	Materializer *checkout.Materializer
	Finalizer    *checkout.Finalizer
	Events       *events.Publisher
	Log          *zap.Logger
}

// SetupRoutes is the single entry-point that wires up the user, order and
// payment route groups.
func SetupRoutes(r *gin.Engine, deps Deps) {
	// User routes (JWT-protected)
	SetupUserRoutes(r, deps)

	// Order routes
	SetupOrderRoutes(r, deps)

	// Payment collaborator callback (API-key-protected)
	SetupPaymentRoutes(r, deps)
}
