package models

import "time"

// MenuItem is a sellable dish from the restaurant catalog
type MenuItem struct {
	ID       uint    `json:"id" gorm:"primaryKey"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Category string  `json:"category"` // e.g. "Drinks", "Main Course"
	ImageURL string  `json:"image_url"`

	// Paused items stay in the catalog but are not offered to customers
	Paused bool `json:"paused" gorm:"default:false"`

	CreatedAt time.Time `json:"created_at"`
}

// Available reports whether the item can currently be ordered
func (m *MenuItem) Available() bool {
	return !m.Paused
}
