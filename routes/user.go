package routes

import (
	"github.com/gin-gonic/gin"
	cartControllers "github.com/hamza-damra/AgrifinPal-sub000/controllers/cart"
	productControllers "github.com/hamza-damra/AgrifinPal-sub000/controllers/product"
	"github.com/hamza-damra/AgrifinPal-sub000/middleware"
)

// SetupUserRoutes registers all "/user/*" endpoints. Requires JWT middleware.
func SetupUserRoutes(r *gin.Engine, deps Deps) {
	userGroup := r.Group("/user")
	userGroup.Use(middleware.ValidateToken)
	{
		// ──────────────── Shopping Cart ────────────────
		cartGroup := userGroup.Group("/cart")
		{
			cartGroup.GET("/", cartControllers.GetUserCart(deps.Carts))                     // GET /user/cart
			cartGroup.POST("/", cartControllers.AddCartItem(deps.Carts))                    // POST /user/cart
			cartGroup.PUT("/:item_id", cartControllers.UpdateCartItem(deps.Carts))          // PUT /user/cart/:item_id
			cartGroup.DELETE("/:item_id", cartControllers.DeleteCartItem(deps.Carts))       // DELETE /user/cart/:item_id
			cartGroup.DELETE("/", cartControllers.ClearUserCart(deps.Carts))                // DELETE /user/cart
			cartGroup.GET("/contains/:product_id", cartControllers.IsInCart(deps.Carts))    // GET /user/cart/contains/:product_id
		}

		// ──────────────── Browse Products ────────────────
		userGroup.GET("/products", productControllers.GetProducts(deps.DB))        // GET /user/products
		userGroup.GET("/products/:id", productControllers.GetProductByID(deps.DB)) // GET /user/products/:id
	}
}
