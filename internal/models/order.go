package models

import "time"

// Order represents a finalized table order
type Order struct {
	ID string `json:"id" gorm:"primaryKey"`

	TableID      string `json:"table_id"`
	CustomerName string `json:"customer_name"`
	PhoneNumber  string `json:"phone_number"`
	UserEmail    string `json:"user_email"`

	Items []OrderItem `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	// Status tracking
	Status string `json:"status"` // "pending", "confirmed", "completed", "cancelled"
	Source string `json:"source"` // "website" or "whatsapp"

	Total     float64   `json:"total"`
	OrderTime time.Time `json:"order_time"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OrderItem is a single line of an order
type OrderItem struct {
	ID       uint    `json:"-" gorm:"primaryKey"`
	OrderID  string  `json:"-" gorm:"index"`
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"` // unit price at order time
}

// Order status constants
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"

	OrderSourceWebsite  = "website"
	OrderSourceWhatsApp = "whatsapp"
)
