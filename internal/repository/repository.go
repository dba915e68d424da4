package repository

import (
	"context"
	"time"

	"github.com/GratienSA/escargotAPI/internal/domain"
)

// CartRepository defines per-session cart persistence.
type CartRepository interface {
	// Get retrieves a session's cart. Returns a not-found error when the
	// session has no cart.
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)

	// Save persists a cart, refreshing its TTL.
	Save(ctx context.Context, cart *domain.Cart) error

	// Delete removes a session's cart.
	Delete(ctx context.Context, sessionID string) error
}

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	UserID  *string
	Status  *string
	Page    int
	PerPage int
}

// OrderRepository defines the interface for order persistence operations.
type OrderRepository interface {
	// Create inserts a new order and its items into the store atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order by its unique identifier, including items.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns orders matching the given filter along with the total count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus changes the status of an order.
	UpdateStatus(ctx context.Context, id string, status string) error

	// MarkPaid flags an order as paid at the given time and moves it to the
	// paid status.
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error

	// MarkDelivered flags an order as delivered at the given time and moves
	// it to the delivered status.
	MarkDelivered(ctx context.Context, id string, deliveredAt time.Time) error
}
