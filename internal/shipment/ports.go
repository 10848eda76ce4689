package shipment

import (
	"context"
)

// OrderProvider loads orders owned by the wider backend.
// GetByID returns ErrOrderMissing for unknown orders.
type OrderProvider interface {
	GetByID(ctx context.Context, id int64) (*Order, error)
}

// Notifier is told about created documents. Failures never undo provisioning.
type Notifier interface {
	ShipmentCreated(ctx context.Context, order *Order, docNumber string) error
}

// DocumentRepository persists shipment documents, one per order.
type DocumentRepository interface {
	// Add returns ErrDocumentExists if the order already has a document.
	Add(ctx context.Context, doc *ShipmentDocument) error
	// GetByOrderID and GetByRef return ErrDocumentNotFound when absent.
	GetByOrderID(ctx context.Context, orderID int64) (*ShipmentDocument, error)
	GetByRef(ctx context.Context, ref string) (*ShipmentDocument, error)
	List(ctx context.Context) ([]ShipmentDocument, error)
	DeleteByRef(ctx context.Context, ref string) error
}

// CounterpartyRepository is the append-only local mirror of recipients
// created on the carrier side.
type CounterpartyRepository interface {
	Add(ctx context.Context, agent *CounterAgent) error
	// FindByName returns mirrored counterparties with exactly this first and
	// last name, oldest first.
	FindByName(ctx context.Context, firstName, lastName string) ([]CounterAgent, error)
}
