package documentrepo

import (
	"context"
	"errors"

	"github.com/tournevent/shipdoc/internal/shipment"
	"github.com/tournevent/shipdoc/internal/storage/postgres"
	"gorm.io/gorm"
)

// GormDocumentRepository implements shipment.DocumentRepository using GORM.
type GormDocumentRepository struct {
	db *gorm.DB
}

// NewGormDocumentRepository creates a new GORM document repository.
func NewGormDocumentRepository(db *gorm.DB) *GormDocumentRepository {
	return &GormDocumentRepository{db: db}
}

// Add inserts a document. A second document for the same order, or a
// duplicate ref, yields shipment.ErrDocumentExists.
func (r *GormDocumentRepository) Add(ctx context.Context, doc *shipment.ShipmentDocument) error {
	dto := fromDomain(doc)
	if err := r.db.WithContext(ctx).Create(&dto).Error; err != nil {
		if postgres.IsUniqueViolation(err) {
			return shipment.ErrDocumentExists
		}
		return err
	}
	return nil
}

// GetByOrderID retrieves the document of an order.
func (r *GormDocumentRepository) GetByOrderID(ctx context.Context, orderID int64) (*shipment.ShipmentDocument, error) {
	return r.first(ctx, "order_id = ?", orderID)
}

// GetByRef retrieves a document by its carrier ref.
func (r *GormDocumentRepository) GetByRef(ctx context.Context, ref string) (*shipment.ShipmentDocument, error) {
	return r.first(ctx, "ref = ?", ref)
}

func (r *GormDocumentRepository) first(ctx context.Context, query string, arg any) (*shipment.ShipmentDocument, error) {
	var dto DocumentDTO
	if err := r.db.WithContext(ctx).First(&dto, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shipment.ErrDocumentNotFound
		}
		return nil, err
	}
	doc := toDomain(dto)
	return &doc, nil
}

// List returns all documents, oldest order first.
func (r *GormDocumentRepository) List(ctx context.Context) ([]shipment.ShipmentDocument, error) {
	var dtos []DocumentDTO
	if err := r.db.WithContext(ctx).Order("order_id").Find(&dtos).Error; err != nil {
		return nil, err
	}

	docs := make([]shipment.ShipmentDocument, 0, len(dtos))
	for _, dto := range dtos {
		docs = append(docs, toDomain(dto))
	}
	return docs, nil
}

// DeleteByRef removes a document row.
func (r *GormDocumentRepository) DeleteByRef(ctx context.Context, ref string) error {
	result := r.db.WithContext(ctx).Where("ref = ?", ref).Delete(&DocumentDTO{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shipment.ErrDocumentNotFound
	}
	return nil
}

var _ shipment.DocumentRepository = (*GormDocumentRepository)(nil)
