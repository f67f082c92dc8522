package storage

import (
	"fmt"
	"sync"
	"time"

	"github.com/tastoria/tastoria-backend/internal/models"
)

// MemoryStore holds catalog and orders in memory for local development and tests
type MemoryStore struct {
	menu   []*models.MenuItem
	orders map[string]*models.Order

	menuMu  sync.RWMutex
	orderMu sync.RWMutex

	menuCounter int
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		menu:   []*models.MenuItem{},
		orders: make(map[string]*models.Order),
	}
}

// Menu operations

func (m *MemoryStore) CreateMenuItem(item *models.MenuItem) (*models.MenuItem, error) {
	m.menuMu.Lock()
	defer m.menuMu.Unlock()

	m.menuCounter++
	item.ID = uint(m.menuCounter)
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	m.menu = append(m.menu, item)
	return item, nil
}

func (m *MemoryStore) GetMenuItems() ([]*models.MenuItem, error) {
	m.menuMu.RLock()
	defer m.menuMu.RUnlock()

	items := make([]*models.MenuItem, len(m.menu))
	copy(items, m.menu)
	return items, nil
}

// Order operations

func (m *MemoryStore) CreateOrder(order *models.Order) (*models.Order, error) {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	if order.ID == "" {
		return nil, fmt.Errorf("order id is required")
	}
	if _, exists := m.orders[order.ID]; exists {
		return nil, fmt.Errorf("order %s already exists", order.ID)
	}

	order.CreatedAt = time.Now()
	order.UpdatedAt = time.Now()
	m.orders[order.ID] = order
	return order, nil
}

func (m *MemoryStore) GetOrder(id string) (*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	order, exists := m.orders[id]
	if !exists {
		return nil, ErrNotFound
	}
	return order, nil
}

func (m *MemoryStore) GetOrdersByTable(tableID string) ([]*models.Order, error) {
	m.orderMu.RLock()
	defer m.orderMu.RUnlock()

	orders := []*models.Order{}
	for _, order := range m.orders {
		if order.TableID == tableID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (m *MemoryStore) UpdateOrderStatus(id string, status string) error {
	m.orderMu.Lock()
	defer m.orderMu.Unlock()

	order, exists := m.orders[id]
	if !exists {
		return ErrNotFound
	}

	order.Status = status
	order.UpdatedAt = time.Now()
	return nil
}
