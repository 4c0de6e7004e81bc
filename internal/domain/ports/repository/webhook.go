package repository

import "context"

// DeliveryLog remembers webhook deliveries already processed.
type DeliveryLog interface {
	// FirstDelivery records key and reports whether it was unseen.
	FirstDelivery(ctx context.Context, key string) (bool, error)
}
