package models

import "time"

type OrderStatus string
type PaymentStatus string

const (
	// Order statuses
	OrderStatusPending   OrderStatus = "pending"   // Order placed, awaiting payment confirmation
	OrderStatusPaid      OrderStatus = "paid"      // Payment confirmed, checkout completed
	OrderStatusDelivered OrderStatus = "delivered" // Buyer received the produce
	OrderStatusCancelled OrderStatus = "cancelled" // Cancelled before delivery

	// Payment statuses
	PaymentStatusPending   PaymentStatus = "pending"   // Payment not completed yet
	PaymentStatusCompleted PaymentStatus = "completed" // Payment completed successfully
	PaymentStatusFailed    PaymentStatus = "failed"    // Payment attempt failed
	PaymentStatusRefunded  PaymentStatus = "refunded"  // Money returned to buyer
)

type Order struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	UserID           string        `gorm:"not null;index" json:"user_id"`
	CartID           uint          `json:"-"` // the cart this order was materialized from
	OrderRef         string        `gorm:"uniqueIndex" json:"order_ref"`
	PaymentReference string        `gorm:"uniqueIndex" json:"payment_reference"` // Rejects duplicate orders on webhook retries
	Items            []OrderItem   `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	TotalAmount      float64       `json:"total_amount"`
	Status           OrderStatus   `gorm:"type:VARCHAR(20);default:'pending'" json:"status"`
	PaymentStatus    PaymentStatus `gorm:"type:VARCHAR(20);default:'pending'" json:"payment_status"`
	OrderDate        time.Time     `json:"order_date"`
}

// OrderItem is an immutable per-product snapshot. Historical pricing stays
// stable even when the catalog price changes later.
type OrderItem struct {
	ID          uint    `gorm:"primaryKey" json:"id"`
	OrderID     uint    `gorm:"index" json:"order_id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	FarmName    string  `json:"farm_name"`
	Unit        string  `json:"unit"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}
