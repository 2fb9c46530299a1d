package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID, storage and prices included
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByErpNr finds a product by its legacy article number
	FindByErpNr(ctx context.Context, erpNr string) (*Product, error)

	// FindActive returns all active products
	FindActive(ctx context.Context) ([]Product, error)

	// Save creates or updates a product together with its storage record
	Save(ctx context.Context, product *Product) error

	// Delete deletes a product with its storage and prices
	Delete(ctx context.Context, id uuid.UUID) error
}

// SalesChannelRepository defines the interface for sales channel persistence
type SalesChannelRepository interface {
	// FindByID finds a channel by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*SalesChannel, error)

	// FindBySalesChannelID finds a channel by its webshop id
	FindBySalesChannelID(ctx context.Context, salesChannelID string) (*SalesChannel, error)

	// FindDefault returns the default channel
	FindDefault(ctx context.Context) (*SalesChannel, error)

	// FindActive returns all active channels
	FindActive(ctx context.Context) ([]SalesChannel, error)

	// Save creates or updates a channel
	Save(ctx context.Context, channel *SalesChannel) error
}

// PriceRepository defines the interface for price persistence
type PriceRepository interface {
	// FindByProductAndChannel finds the price of one (product, channel) pair
	FindByProductAndChannel(ctx context.Context, productID, channelID uuid.UUID) (*Price, error)

	// FindByProduct returns all channel prices of a product
	FindByProduct(ctx context.Context, productID uuid.UUID) ([]Price, error)

	// Save creates or updates a price
	Save(ctx context.Context, price *Price) error

	// Delete deletes a price
	Delete(ctx context.Context, id uuid.UUID) error
}
