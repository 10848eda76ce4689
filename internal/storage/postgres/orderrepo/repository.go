// Package orderrepo reads orders owned by the wider backend.
package orderrepo

import (
	"context"
	"errors"

	"github.com/tournevent/shipdoc/internal/shipment"
	"gorm.io/gorm"
)

// OrderDTO is the subset of the orders row needed for shipping.
type OrderDTO struct {
	ID                 int64 `gorm:"primaryKey"`
	CustomerFirstName  string
	CustomerLastName   string
	CustomerMiddleName string
	CustomerPhone      string
	CustomerEmail      string
	CustomerCity       string
	CustomerAddress    string
}

// TableName overrides GORM's default table name.
func (OrderDTO) TableName() string {
	return "orders"
}

func toDomain(dto OrderDTO) *shipment.Order {
	return &shipment.Order{
		ID: dto.ID,
		Customer: shipment.Customer{
			FirstName:  dto.CustomerFirstName,
			LastName:   dto.CustomerLastName,
			MiddleName: dto.CustomerMiddleName,
			Phone:      dto.CustomerPhone,
			Email:      dto.CustomerEmail,
			City:       dto.CustomerCity,
			Address:    dto.CustomerAddress,
		},
	}
}

// GormOrderRepository implements shipment.OrderProvider using GORM.
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GORM order repository.
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// GetByID retrieves an order by ID.
func (r *GormOrderRepository) GetByID(ctx context.Context, id int64) (*shipment.Order, error) {
	var dto OrderDTO
	if err := r.db.WithContext(ctx).First(&dto, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipment.ErrOrderMissing
		}
		return nil, err
	}
	return toDomain(dto), nil
}

var _ shipment.OrderProvider = (*GormOrderRepository)(nil)
