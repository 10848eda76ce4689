package shipment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipdoc/internal/shipment"
	"github.com/tournevent/shipdoc/internal/shipment/mock"
	"github.com/tournevent/shipdoc/pkg/carrier/novaposhta"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestDocumentService(api *novaposhta.MockAPIClient, docs *mock.Documents) *shipment.DocumentService {
	return shipment.NewDocumentService(docs, newTestCarrier(api), otelzap.New(zap.NewNop()))
}

func storedDocument() shipment.ShipmentDocument {
	return shipment.ShipmentDocument{
		Ref:          "doc-1",
		IntDocNumber: "20450000000001",
		OrderID:      42,
	}
}

func TestDocumentService_Delete(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	docs := mock.NewDocuments(storedDocument())
	svc := newTestDocumentService(api, docs)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "doc-1"))

	_, err := svc.GetByOrderID(ctx, 42)
	assert.ErrorIs(t, err, shipment.ErrDocumentNotFound)

	props := api.Calls()[0].Properties.(novaposhta.DeleteDocumentsRequest)
	assert.Equal(t, []string{"doc-1"}, props.DocumentRefs)
}

func TestDocumentService_Delete_CarrierRejectsKeepsRow(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	api.On(novaposhta.ModelInternetDocument, novaposhta.MethodDelete, func(ctx context.Context, props any) (*novaposhta.Response, error) {
		return novaposhta.Rejected("Document is already in transit"), nil
	})
	docs := mock.NewDocuments(storedDocument())
	svc := newTestDocumentService(api, docs)

	err := svc.Delete(context.Background(), "doc-1")

	var apiErr *novaposhta.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, []string{"Document is already in transit"}, apiErr.Errors)

	doc, err := svc.GetByOrderID(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "doc-1", doc.Ref)
}

func TestDocumentService_Delete_TransportErrorKeepsRow(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	api.SimulateErrors = true
	docs := mock.NewDocuments(storedDocument())
	svc := newTestDocumentService(api, docs)

	err := svc.Delete(context.Background(), "doc-1")

	require.Error(t, err)
	assert.Equal(t, 1, docs.Len())
}

func TestDocumentService_Delete_Unconfirmed(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	api.On(novaposhta.ModelInternetDocument, novaposhta.MethodDelete, func(ctx context.Context, props any) (*novaposhta.Response, error) {
		return novaposhta.OK(novaposhta.DeletedDocument{Ref: "doc-other"})
	})
	docs := mock.NewDocuments(storedDocument())
	svc := newTestDocumentService(api, docs)

	err := svc.Delete(context.Background(), "doc-1")

	assert.ErrorIs(t, err, shipment.ErrRevocationUnconfirmed)
	assert.Equal(t, 1, docs.Len())
}

func TestDocumentService_Delete_UnknownRef(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	svc := newTestDocumentService(api, mock.NewDocuments())

	err := svc.Delete(context.Background(), "doc-missing")

	assert.ErrorIs(t, err, shipment.ErrDocumentNotFound)
	assert.Empty(t, api.Calls())
}

func TestDocumentService_List(t *testing.T) {
	second := storedDocument()
	second.Ref = "doc-2"
	second.OrderID = 7
	svc := newTestDocumentService(novaposhta.NewMockAPIClient(), mock.NewDocuments(storedDocument(), second))

	docs, err := svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, int64(7), docs[0].OrderID)
	assert.Equal(t, int64(42), docs[1].OrderID)
}
