package counterpartyrepo

import (
	"context"

	"github.com/tournevent/shipdoc/internal/shipment"
	"gorm.io/gorm"
)

// GormCounterpartyRepository implements shipment.CounterpartyRepository using GORM.
type GormCounterpartyRepository struct {
	db *gorm.DB
}

// NewGormCounterpartyRepository creates a new GORM counterparty repository.
func NewGormCounterpartyRepository(db *gorm.DB) *GormCounterpartyRepository {
	return &GormCounterpartyRepository{db: db}
}

// Add appends a mirror row.
func (r *GormCounterpartyRepository) Add(ctx context.Context, agent *shipment.CounterAgent) error {
	dto := fromDomain(agent)
	return r.db.WithContext(ctx).Create(&dto).Error
}

// FindByName returns rows with exactly this first and last name, oldest first.
func (r *GormCounterpartyRepository) FindByName(ctx context.Context, firstName, lastName string) ([]shipment.CounterAgent, error) {
	var dtos []CounterpartyDTO
	err := r.db.WithContext(ctx).
		Where("first_name = ? AND last_name = ?", firstName, lastName).
		Order("id").
		Find(&dtos).Error
	if err != nil {
		return nil, err
	}

	agents := make([]shipment.CounterAgent, 0, len(dtos))
	for _, dto := range dtos {
		agents = append(agents, toDomain(dto))
	}
	return agents, nil
}

var _ shipment.CounterpartyRepository = (*GormCounterpartyRepository)(nil)
