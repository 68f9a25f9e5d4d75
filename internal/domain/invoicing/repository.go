package invoicing

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository resolves an order id into the invoice input aggregate.
// Implementations return ErrOrderNotFound when the id does not resolve.
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
}
