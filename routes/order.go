package routes

import (
	"github.com/gin-gonic/gin"
	orderControllers "github.com/hamza-damra/AgrifinPal-sub000/controllers/order"
	"github.com/hamza-damra/AgrifinPal-sub000/middleware"
)

func SetupOrderRoutes(r *gin.Engine, deps Deps) {
	orders := r.Group("/orders")
	{
		// Fetch all orders (admin)
		orders.GET("/", middleware.ValidateAPIKey, orderControllers.GetAllOrdersHandler(deps.DB))

		// websocket endpoint for real-time order updates
		orders.GET("/ws", orderControllers.OrderWebSocketHandler)

		// Fetch orders for a specific user
		orders.GET("/user/:userID", middleware.ValidateToken, orderControllers.GetUserOrdersHandler(deps.DB))

		// Fetch a single order by id or order_ref
		orders.GET("/:orderID", middleware.ValidateToken, orderControllers.GetOrderByIDHandler(deps.DB))
	}
}
