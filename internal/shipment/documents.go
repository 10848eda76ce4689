package shipment

import (
	"context"
	"fmt"

	"github.com/tournevent/shipdoc/pkg/carrier/novaposhta"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// DocumentService exposes stored shipment documents and revokes them.
type DocumentService struct {
	documents DocumentRepository
	carrier   *novaposhta.Client
	logger    *otelzap.Logger
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(documents DocumentRepository, carrier *novaposhta.Client, logger *otelzap.Logger) *DocumentService {
	return &DocumentService{
		documents: documents,
		carrier:   carrier,
		logger:    logger,
	}
}

// GetByOrderID returns the document of an order or ErrDocumentNotFound.
func (s *DocumentService) GetByOrderID(ctx context.Context, orderID int64) (*ShipmentDocument, error) {
	return s.documents.GetByOrderID(ctx, orderID)
}

// List returns all stored documents.
func (s *DocumentService) List(ctx context.Context) ([]ShipmentDocument, error) {
	return s.documents.List(ctx)
}

// Delete revokes the document on the carrier side and removes the local row
// only once the carrier confirms. Any carrier failure leaves the row intact.
func (s *DocumentService) Delete(ctx context.Context, documentRef string) error {
	doc, err := s.documents.GetByRef(ctx, documentRef)
	if err != nil {
		return err
	}

	deleted, err := s.carrier.DeleteInternetDocument(ctx, documentRef)
	if err != nil {
		s.logger.Ctx(ctx).Warn("Carrier refused document revocation, keeping local copy",
			zap.String("document_ref", documentRef),
			zap.Error(err),
		)
		return fmt.Errorf("revoking document %s: %w", documentRef, err)
	}

	confirmed := false
	for _, d := range deleted {
		if d.Ref == documentRef {
			confirmed = true
			break
		}
	}
	if !confirmed {
		return fmt.Errorf("revoking document %s: %w", documentRef, ErrRevocationUnconfirmed)
	}

	if err := s.documents.DeleteByRef(ctx, documentRef); err != nil {
		return fmt.Errorf("removing document %s: %w", documentRef, err)
	}

	s.logger.Ctx(ctx).Info("Shipment document deleted",
		zap.String("document_ref", documentRef),
		zap.Int64("order_id", doc.OrderID),
	)
	return nil
}
