package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tastoria/tastoria-backend/internal/models"
	"github.com/tastoria/tastoria-backend/internal/storage"
)

// OrderAnnounceChannel is the Redis channel live dashboards subscribe to
const OrderAnnounceChannel = "orders:new"

// OrderService persists finalized orders and announces them to live
// subscribers (the admin dashboard). Announce failure never fails Place.
type OrderService struct {
	store storage.Store
	redis *redis.Client // nil disables announcements (tests, memory mode)
}

// NewOrderService creates a new order service
func NewOrderService(store storage.Store, rdb *redis.Client) *OrderService {
	return &OrderService{store: store, redis: rdb}
}

// Place assigns an id and timestamp, persists the order atomically and
// fans it out to subscribers
func (o *OrderService) Place(ctx context.Context, order *models.Order) (*models.Order, error) {
	order.ID = uuid.NewString()
	order.OrderTime = time.Now()
	if order.Status == "" {
		order.Status = models.OrderStatusPending
	}

	created, err := o.store.CreateOrder(order)
	if err != nil {
		return nil, err
	}

	o.Announce(ctx, created)
	return created, nil
}

// Announce publishes the order on the live channel, best-effort
func (o *OrderService) Announce(ctx context.Context, order *models.Order) {
	if o.redis == nil {
		return
	}

	payload, err := json.Marshal(order)
	if err != nil {
		log.Printf("❌ Failed to marshal order %s for announce: %v", order.ID, err)
		return
	}

	if err := o.redis.Publish(ctx, OrderAnnounceChannel, payload).Err(); err != nil {
		log.Printf("❌ Failed to announce order %s: %v", order.ID, err)
		return
	}

	log.Printf("📣 Order %s announced on %s", order.ID, OrderAnnounceChannel)
}
