package storage

import (
	"errors"

	"github.com/tastoria/tastoria-backend/internal/models"
)

// ErrNotFound is returned when a requested record does not exist
var ErrNotFound = errors.New("record not found")

// ErrSessionStoreUnavailable wraps session store infrastructure failures.
// Handlers treat it as retryable: the provider gets a 5xx and redelivers.
var ErrSessionStoreUnavailable = errors.New("session store unavailable")

// Store defines the interface for catalog and order persistence
type Store interface {
	// Menu operations
	CreateMenuItem(item *models.MenuItem) (*models.MenuItem, error)
	GetMenuItems() ([]*models.MenuItem, error)

	// Order operations
	CreateOrder(order *models.Order) (*models.Order, error)
	GetOrder(id string) (*models.Order, error)
	GetOrdersByTable(tableID string) ([]*models.Order, error)
	UpdateOrderStatus(id string, status string) error
}
