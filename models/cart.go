package models

import "time"

type CartStatus string

const (
	CartStatusActive    CartStatus = "active"    // the single mutable cart a user may add items to
	CartStatusCompleted CartStatus = "completed" // retired at checkout; items removed, superseded by a new active cart
)

type Cart struct {
	CartID        uint       `gorm:"primaryKey" json:"cart_id"`
	UserID        string     `gorm:"not null;index:idx_carts_user_active,unique,where:status = 'active'" json:"user_id"` // Enforces ONE active cart per user
	Status        CartStatus `gorm:"type:VARCHAR(20);default:'active'" json:"status"`
	Items         []CartItem `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE" json:"items"` // Cascade delete items if cart is deleted
	TotalPrice    float64    `json:"total_price"`
	TotalQuantity int        `json:"total_quantity"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CartID      uint      `gorm:"index;uniqueIndex:idx_cart_product" json:"cart_id"` // One line per product per cart
	ProductID   uint      `gorm:"uniqueIndex:idx_cart_product" json:"product_id"`
	ProductName string    `json:"product_name"`
	FarmName    string    `json:"farm_name"`
	Unit        string    `json:"unit"`       // e.g. "kg", "crate", "dozen"
	UnitPrice   float64   `json:"unit_price"` // price snapshot copied from the product when the line was added
	Quantity    int       `json:"quantity"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
