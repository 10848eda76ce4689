package shipment_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tournevent/shipdoc/internal/shipment"
	"github.com/tournevent/shipdoc/pkg/carrier/novaposhta"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

func newTestCarrier(mockAPI *novaposhta.MockAPIClient) *novaposhta.Client {
	return novaposhta.NewWithAPIClient(novaposhta.Config{}, mockAPI, otelzap.New(zap.NewNop()))
}

func TestExtractStreetAndBuilding(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		street   string
		building string
	}{
		{"three segments", "Kyiv, Khreshchatyk St, 22", "Khreshchatyk St", "22"},
		{"extra spaces", "  Lviv ,   Shevchenka Ave ,  5a  ", "Shevchenka Ave", "5a"},
		{"four segments keep last as building", "Odesa, Derybasivska St, block 2, 14", "Derybasivska St", "14"},
		{"two segments", "Dnipro, Yavornytskoho Ave", "Yavornytskoho Ave", "Yavornytskoho Ave"},
		{"empty street", "Kyiv, , 22", "", "22"},
		{"empty building", "Kyiv, Khreshchatyk St, ", "Khreshchatyk St", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := shipment.ExtractStreetAndBuilding(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.street, got.StreetName)
			assert.Equal(t, tt.building, got.BuildingNumber)
		})
	}
}

func TestExtractStreetAndBuilding_Malformed(t *testing.T) {
	for _, in := range []string{"", "Kyiv", "Kyiv Khreshchatyk St 22"} {
		t.Run(in, func(t *testing.T) {
			got, err := shipment.ExtractStreetAndBuilding(in)
			assert.ErrorIs(t, err, shipment.ErrMalformedAddress)
			assert.Equal(t, shipment.StreetComponents{}, got)
		})
	}
}

func TestWarehouseResolver_ResolveDestination_FirstMatch(t *testing.T) {
	mockAPI := novaposhta.NewMockAPIClient()
	mockAPI.On(novaposhta.ModelAddress, novaposhta.MethodGetWarehouses, func(ctx context.Context, props any) (*novaposhta.Response, error) {
		return novaposhta.OK(
			novaposhta.Warehouse{Ref: "wh-1", ShortAddress: "Kyiv, Khreshchatyk St, 22", CityRef: "city-kyiv", WarehouseIndex: "1/22"},
			novaposhta.Warehouse{Ref: "wh-2", ShortAddress: "Kyiv, Khreshchatyk St, 44", CityRef: "city-kyiv"},
		)
	})
	resolver := shipment.NewWarehouseResolver(newTestCarrier(mockAPI), otelzap.New(zap.NewNop()))

	wh, err := resolver.ResolveDestination(context.Background(), "Kyiv", "Kyiv, Khreshchatyk St, 10")

	require.NoError(t, err)
	assert.Equal(t, "wh-1", wh.Ref)
	assert.Equal(t, "city-kyiv", wh.CityRef)
	assert.Equal(t, "1/22", wh.Index)

	props := mockAPI.Calls()[0].Properties.(novaposhta.WarehousesRequest)
	assert.Equal(t, "Kyiv", props.CityName)
	assert.Equal(t, "Kyiv, Khreshchatyk St, 10", props.FindByString)
}

func TestWarehouseResolver_ResolveDestination_NotFound(t *testing.T) {
	mockAPI := novaposhta.NewMockAPIClient()
	mockAPI.On(novaposhta.ModelAddress, novaposhta.MethodGetWarehouses, func(ctx context.Context, props any) (*novaposhta.Response, error) {
		return novaposhta.OK()
	})
	resolver := shipment.NewWarehouseResolver(newTestCarrier(mockAPI), otelzap.New(zap.NewNop()))

	_, err := resolver.ResolveDestination(context.Background(), "Kyiv", "nowhere")

	assert.ErrorIs(t, err, shipment.ErrDestinationWarehouseNotFound)
}

func TestWarehouseResolver_ResolveDestination_TransportError(t *testing.T) {
	mockAPI := novaposhta.NewMockAPIClient()
	mockAPI.SimulateErrors = true
	resolver := shipment.NewWarehouseResolver(newTestCarrier(mockAPI), otelzap.New(zap.NewNop()))

	_, err := resolver.ResolveDestination(context.Background(), "Kyiv", "Khreshchatyk")

	assert.ErrorIs(t, err, shipment.ErrTransportError)
	assert.False(t, errors.Is(err, shipment.ErrDestinationWarehouseNotFound))
}
