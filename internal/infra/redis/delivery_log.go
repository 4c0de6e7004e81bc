package redis

import (
	"context"
	"time"

	"paystack-billing/internal/domain/ports/repository"
)

var _ repository.DeliveryLog = (*DeliveryLog)(nil)

// DeliveryLog remembers webhook delivery keys for ttl.
type DeliveryLog struct {
	client RedisClient
	ttl    time.Duration
}

func NewDeliveryLog(client RedisClient, ttl time.Duration) *DeliveryLog {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &DeliveryLog{client: client, ttl: ttl}
}

func (d *DeliveryLog) FirstDelivery(ctx context.Context, key string) (bool, error) {
	return d.client.SetNX(ctx, "webhook:"+key, time.Now().Unix(), d.ttl)
}
