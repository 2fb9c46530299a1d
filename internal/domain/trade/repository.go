package trade

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID finds an order by its ID, lines included
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByAPIID finds an order by its webshop id, lines included
	FindByAPIID(ctx context.Context, apiID string) (*Order, error)

	// FindByErpOrderID finds an order by its legacy document number
	FindByErpOrderID(ctx context.Context, belegNr string) (*Order, error)

	// FindUnposted returns orders that have no legacy document yet
	FindUnposted(ctx context.Context, limit int) ([]Order, error)

	// Save creates or updates an order header without touching its lines
	Save(ctx context.Context, order *Order) error

	// SaveWithLines saves the order and replaces all its lines in one
	// transaction
	SaveWithLines(ctx context.Context, order *Order) error

	// Delete deletes an order and its lines
	Delete(ctx context.Context, id uuid.UUID) error
}
