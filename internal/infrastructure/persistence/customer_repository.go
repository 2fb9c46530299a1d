package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Get-Company/GC-Bridge-4/internal/domain/party"
	"github.com/Get-Company/GC-Bridge-4/internal/domain/shared"
)

// GormCustomerRepository implements party.CustomerRepository using GORM
type GormCustomerRepository struct {
	db *gorm.DB
}

// NewGormCustomerRepository creates a new GormCustomerRepository
func NewGormCustomerRepository(db *gorm.DB) *GormCustomerRepository {
	return &GormCustomerRepository{db: db}
}

// FindByID finds a customer by its ID
func (r *GormCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*party.Customer, error) {
	var customer party.Customer
	if err := r.db.WithContext(ctx).Preload("Addresses").First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// FindByErpNr finds a customer by its legacy customer number
func (r *GormCustomerRepository) FindByErpNr(ctx context.Context, erpNr string) (*party.Customer, error) {
	if erpNr == "" {
		return nil, shared.NewDomainError("INVALID_ERP_NR", "Legacy customer number cannot be empty")
	}
	var customer party.Customer
	if err := r.db.WithContext(ctx).Preload("Addresses").
		Where("erp_nr = ?", erpNr).
		First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// FindByAPIID finds a customer by its webshop id
func (r *GormCustomerRepository) FindByAPIID(ctx context.Context, apiID string) (*party.Customer, error) {
	if apiID == "" {
		return nil, shared.NewDomainError("INVALID_API_ID", "Webshop id cannot be empty")
	}
	var customer party.Customer
	if err := r.db.WithContext(ctx).Preload("Addresses").
		Where("api_id = ?", apiID).
		First(&customer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &customer, nil
}

// Save creates or updates a customer without touching its addresses
func (r *GormCustomerRepository) Save(ctx context.Context, customer *party.Customer) error {
	return r.db.WithContext(ctx).Omit("Addresses").Save(customer).Error
}

// SaveWithAddresses saves the customer and all its addresses in one transaction
func (r *GormCustomerRepository) SaveWithAddresses(ctx context.Context, customer *party.Customer) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Addresses").Save(customer).Error; err != nil {
			return err
		}
		for i := range customer.Addresses {
			customer.Addresses[i].CustomerID = customer.ID
			if err := tx.Save(&customer.Addresses[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete deletes a customer and its addresses
func (r *GormCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("customer_id = ?", id).Delete(&party.Address{}).Error; err != nil {
			return err
		}
		return tx.Delete(&party.Customer{}, "id = ?", id).Error
	})
}

// GormAddressRepository implements party.AddressRepository using GORM
type GormAddressRepository struct {
	db *gorm.DB
}

// NewGormAddressRepository creates a new GormAddressRepository
func NewGormAddressRepository(db *gorm.DB) *GormAddressRepository {
	return &GormAddressRepository{db: db}
}

// FindByID finds an address by its ID
func (r *GormAddressRepository) FindByID(ctx context.Context, id uuid.UUID) (*party.Address, error) {
	var address party.Address
	if err := r.db.WithContext(ctx).First(&address, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &address, nil
}

// FindByCustomer returns all addresses of a customer
func (r *GormAddressRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID) ([]party.Address, error) {
	var addresses []party.Address
	if err := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("erp_ans_nr").
		Find(&addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

// FindByCustomerAndErpAnsID finds the address mapped to a legacy stable address id
func (r *GormAddressRepository) FindByCustomerAndErpAnsID(ctx context.Context, customerID uuid.UUID, ansID int) (*party.Address, error) {
	var address party.Address
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND erp_ans_id = ?", customerID, ansID).
		First(&address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &address, nil
}

// FindByCustomerAndErpAnsNr finds the address mapped to a legacy address sequence number
func (r *GormAddressRepository) FindByCustomerAndErpAnsNr(ctx context.Context, customerID uuid.UUID, ansNr int) (*party.Address, error) {
	var address party.Address
	if err := r.db.WithContext(ctx).
		Where("customer_id = ? AND erp_ans_nr = ?", customerID, ansNr).
		First(&address).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &address, nil
}

// Save creates or updates an address
func (r *GormAddressRepository) Save(ctx context.Context, address *party.Address) error {
	return r.db.WithContext(ctx).Save(address).Error
}

// DeleteByCustomerNotIn removes addresses of a customer whose legacy sequence
// number is not in keep, and returns how many were removed
func (r *GormAddressRepository) DeleteByCustomerNotIn(ctx context.Context, customerID uuid.UUID, keep []int) (int64, error) {
	if len(keep) == 0 {
		return 0, shared.NewDomainError("EMPTY_KEEP_SET", "Refusing to prune all addresses of a customer")
	}
	result := r.db.WithContext(ctx).
		Where("customer_id = ? AND erp_ans_nr NOT IN ?", customerID, keep).
		Delete(&party.Address{})
	return result.RowsAffected, result.Error
}

// Delete deletes an address
func (r *GormAddressRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&party.Address{}, "id = ?", id).Error
}
