// Package documentrepo persists shipment documents in Postgres.
package documentrepo

import (
	"time"

	"github.com/tournevent/shipdoc/internal/shipment"
)

// DocumentDTO is the shipment_documents row.
type DocumentDTO struct {
	Ref                   string `gorm:"primaryKey"`
	OrderID               int64  `gorm:"uniqueIndex"`
	IntDocNumber          string
	CostOnSite            float64 `gorm:"type:numeric(12,2)"`
	EstimatedDeliveryDate string
	TypeDocument          string
	CreatedAt             time.Time
}

// TableName overrides GORM's default table name.
func (DocumentDTO) TableName() string {
	return "shipment_documents"
}

func fromDomain(doc *shipment.ShipmentDocument) DocumentDTO {
	return DocumentDTO{
		Ref:                   doc.Ref,
		OrderID:               doc.OrderID,
		IntDocNumber:          doc.IntDocNumber,
		CostOnSite:            doc.CostOnSite,
		EstimatedDeliveryDate: doc.EstimatedDeliveryDate,
		TypeDocument:          doc.TypeDocument,
		CreatedAt:             doc.CreatedAt,
	}
}

func toDomain(dto DocumentDTO) shipment.ShipmentDocument {
	return shipment.ShipmentDocument{
		Ref:                   dto.Ref,
		CostOnSite:            dto.CostOnSite,
		EstimatedDeliveryDate: dto.EstimatedDeliveryDate,
		IntDocNumber:          dto.IntDocNumber,
		TypeDocument:          dto.TypeDocument,
		OrderID:               dto.OrderID,
		CreatedAt:             dto.CreatedAt.UTC(),
	}
}
