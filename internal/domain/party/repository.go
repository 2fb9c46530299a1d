package party

import (
	"context"

	"github.com/google/uuid"
)

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByID finds a customer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)

	// FindByErpNr finds a customer by its legacy customer number
	FindByErpNr(ctx context.Context, erpNr string) (*Customer, error)

	// FindByAPIID finds a customer by its webshop id
	FindByAPIID(ctx context.Context, apiID string) (*Customer, error)

	// Save creates or updates a customer without touching its addresses
	Save(ctx context.Context, customer *Customer) error

	// SaveWithAddresses saves the customer and all its addresses in one
	// transaction
	SaveWithAddresses(ctx context.Context, customer *Customer) error

	// Delete deletes a customer and its addresses
	Delete(ctx context.Context, id uuid.UUID) error
}

// AddressRepository defines the interface for address persistence
type AddressRepository interface {
	// FindByID finds an address by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Address, error)

	// FindByCustomer returns all addresses of a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]Address, error)

	// FindByCustomerAndErpAnsID finds the address mapped to a legacy
	// stable address id
	FindByCustomerAndErpAnsID(ctx context.Context, customerID uuid.UUID, ansID int) (*Address, error)

	// FindByCustomerAndErpAnsNr finds the address mapped to a legacy
	// address sequence number
	FindByCustomerAndErpAnsNr(ctx context.Context, customerID uuid.UUID, ansNr int) (*Address, error)

	// Save creates or updates an address
	Save(ctx context.Context, address *Address) error

	// DeleteByCustomerNotIn removes addresses of a customer whose legacy
	// sequence number is not in keep, and returns how many were removed
	DeleteByCustomerNotIn(ctx context.Context, customerID uuid.UUID, keep []int) (int64, error)

	// Delete deletes an address
	Delete(ctx context.Context, id uuid.UUID) error
}
