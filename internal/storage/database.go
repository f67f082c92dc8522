package storage

import (
	"errors"

	"gorm.io/gorm"

	"github.com/tastoria/tastoria-backend/internal/models"
)

// DatabaseStore implements Store backed by PostgreSQL via GORM
type DatabaseStore struct {
	db *gorm.DB
}

// NewDatabaseStore creates a database-backed store
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	return &DatabaseStore{db: db}
}

// Menu operations

func (d *DatabaseStore) CreateMenuItem(item *models.MenuItem) (*models.MenuItem, error) {
	if err := d.db.Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

func (d *DatabaseStore) GetMenuItems() ([]*models.MenuItem, error) {
	var items []*models.MenuItem
	if err := d.db.Order("created_at asc").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Order operations

func (d *DatabaseStore) CreateOrder(order *models.Order) (*models.Order, error) {
	// Single Create persists the order and its items in one transaction
	if err := d.db.Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

func (d *DatabaseStore) GetOrder(id string) (*models.Order, error) {
	var order models.Order
	err := d.db.Preload("Items").First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (d *DatabaseStore) GetOrdersByTable(tableID string) ([]*models.Order, error) {
	var orders []*models.Order
	err := d.db.Preload("Items").
		Where("table_id = ?", tableID).
		Order("order_time desc").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (d *DatabaseStore) UpdateOrderStatus(id string, status string) error {
	result := d.db.Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
