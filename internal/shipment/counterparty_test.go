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

var kyivWarehouse = &shipment.Warehouse{
	Ref:          "wh-22",
	ShortAddress: "Kyiv, Khreshchatyk St, 22",
	CityRef:      "city-kyiv",
	Index:        "1/22",
}

func newTestResolver(api *novaposhta.MockAPIClient, mirror *mock.Counterparties) *shipment.CounterpartyResolver {
	return shipment.NewCounterpartyResolver(newTestCarrier(api), mirror, otelzap.New(zap.NewNop()))
}

func TestEnsureRecipient_CreatesAndMirrors(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	mirror := mock.NewCounterparties()
	resolver := newTestResolver(api, mirror)

	agent, err := resolver.EnsureRecipient(context.Background(), testOrder.Customer)

	require.NoError(t, err)
	assert.NotEmpty(t, agent.Ref)
	assert.Equal(t, "Taras", agent.FirstName)
	assert.Equal(t, "Shevchenko", agent.LastName)
	assert.Len(t, agent.ContactPersons, 1)

	props := api.Calls()[0].Properties.(novaposhta.CounterpartySaveRequest)
	assert.Equal(t, novaposhta.CounterpartyPrivatePerson, props.CounterpartyType)
	assert.Equal(t, novaposhta.PropertyRecipient, props.CounterpartyProperty)
	assert.Equal(t, testOrder.Customer.Phone, props.Phone)

	rows := mirror.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, agent.Ref, rows[0].Ref)
}

func TestEnsureRecipient_ReusesMirroredCounterparty(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	mirror := mock.NewCounterparties(shipment.CounterAgent{
		Ref:       "cp-existing",
		FirstName: "Taras",
		LastName:  "Shevchenko",
	})
	resolver := newTestResolver(api, mirror)

	agent, err := resolver.EnsureRecipient(context.Background(), testOrder.Customer)

	require.NoError(t, err)
	assert.Equal(t, "cp-existing", agent.Ref)
	assert.Empty(t, api.Calls())
	assert.Len(t, mirror.Rows(), 1)
}

func TestEnsureRecipient_OneMirrorRowPerName(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	mirror := mock.NewCounterparties()
	resolver := newTestResolver(api, mirror)

	for range 3 {
		_, err := resolver.EnsureRecipient(context.Background(), testOrder.Customer)
		require.NoError(t, err)
	}

	assert.Len(t, mirror.Rows(), 1)
	assert.Equal(t, 1, api.CallCount(novaposhta.ModelCounterpartyGen, novaposhta.MethodSave))
}

func TestEnsureRecipient_NoNameMatch(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	api.On(novaposhta.ModelCounterpartyGen, novaposhta.MethodSave, func(ctx context.Context, props any) (*novaposhta.Response, error) {
		return novaposhta.OK(novaposhta.Counterparty{Ref: "cp-1", FirstName: "Taras", LastName: "Shevchenk0"})
	})
	mirror := mock.NewCounterparties()
	resolver := newTestResolver(api, mirror)

	_, err := resolver.EnsureRecipient(context.Background(), testOrder.Customer)

	assert.ErrorIs(t, err, shipment.ErrAmbiguousOrMissingRecipientMatch)
	assert.Empty(t, mirror.Rows())
}

func TestEnsureRecipient_CarrierRejects(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	api.On(novaposhta.ModelCounterpartyGen, novaposhta.MethodSave, func(ctx context.Context, props any) (*novaposhta.Response, error) {
		return novaposhta.Rejected("Phone is invalid"), nil
	})
	resolver := newTestResolver(api, mock.NewCounterparties())

	_, err := resolver.EnsureRecipient(context.Background(), testOrder.Customer)

	var pe *shipment.ProvisionError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, shipment.CodeRecipientCreateFailed, pe.Code)
	assert.Equal(t, []string{"Phone is invalid"}, pe.CarrierErrors)
}

func TestResolveAndBindAddress(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	api.On(novaposhta.ModelCounterparty, novaposhta.MethodGetCounterpartyAddresses, func(ctx context.Context, props any) (*novaposhta.Response, error) {
		return novaposhta.OK(novaposhta.Address{Ref: "addr-1", Description: "old"})
	})
	api.On(novaposhta.ModelAddress, novaposhta.MethodGetStreet, func(ctx context.Context, props any) (*novaposhta.Response, error) {
		return novaposhta.OK(novaposhta.Street{Ref: "street-1", Description: "Khreshchatyk"})
	})
	resolver := newTestResolver(api, mock.NewCounterparties())

	bound, err := resolver.ResolveAndBindAddress(context.Background(), "cp-1", kyivWarehouse)

	require.NoError(t, err)
	assert.Equal(t, "addr-1", bound.Ref)
	assert.Equal(t, "cp-1", bound.CounterAgentRef)
	assert.Equal(t, "street-1", bound.StreetRef)
	assert.Equal(t, "22", bound.BuildingNumber)

	require.Equal(t, 1, api.CallCount(novaposhta.ModelAddress, novaposhta.MethodUpdate))
	update := api.Calls()[2].Properties.(novaposhta.AddressUpdateRequest)
	assert.Equal(t, "addr-1", update.Ref)
	assert.Equal(t, "cp-1", update.CounterpartyRef)
	assert.Equal(t, "street-1", update.StreetRef)
	assert.Equal(t, "22", update.BuildingNumber)
}

func TestResolveAndBindAddress_Failures(t *testing.T) {
	empty := func(ctx context.Context, props any) (*novaposhta.Response, error) { return novaposhta.OK() }
	rejected := func(ctx context.Context, props any) (*novaposhta.Response, error) {
		return novaposhta.Rejected("Building is not found"), nil
	}

	tests := []struct {
		name      string
		model     string
		method    string
		handler   novaposhta.HandlerFunc
		warehouse *shipment.Warehouse
		want      error
	}{
		{
			name:      "no registered address",
			model:     novaposhta.ModelCounterparty,
			method:    novaposhta.MethodGetCounterpartyAddresses,
			handler:   empty,
			warehouse: kyivWarehouse,
			want:      shipment.ErrRecipientAddressMissing,
		},
		{
			name:      "malformed warehouse address",
			warehouse: &shipment.Warehouse{Ref: "wh-x", ShortAddress: "Kyiv", CityRef: "city-kyiv"},
			want:      shipment.ErrMalformedAddress,
		},
		{
			name:      "street not found",
			model:     novaposhta.ModelAddress,
			method:    novaposhta.MethodGetStreet,
			handler:   empty,
			warehouse: kyivWarehouse,
			want:      shipment.ErrStreetResolutionFailed,
		},
		{
			name:      "update rejected",
			model:     novaposhta.ModelAddress,
			method:    novaposhta.MethodUpdate,
			handler:   rejected,
			warehouse: kyivWarehouse,
			want:      shipment.ErrAddressBindFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := novaposhta.NewMockAPIClient()
			if tt.handler != nil {
				api.On(tt.model, tt.method, tt.handler)
			}
			resolver := newTestResolver(api, mock.NewCounterparties())

			_, err := resolver.ResolveAndBindAddress(context.Background(), "cp-1", tt.warehouse)

			assert.ErrorIs(t, err, tt.want)
			var pe *shipment.ProvisionError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, shipment.StateRecipientAddressBound, pe.Step)
		})
	}
}

func TestResolveAndBindAddress_NoUpdateBeforeStreet(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	api.On(novaposhta.ModelAddress, novaposhta.MethodGetStreet, func(ctx context.Context, props any) (*novaposhta.Response, error) {
		return novaposhta.OK()
	})
	resolver := newTestResolver(api, mock.NewCounterparties())

	_, err := resolver.ResolveAndBindAddress(context.Background(), "cp-1", kyivWarehouse)

	require.Error(t, err)
	assert.Equal(t, 0, api.CallCount(novaposhta.ModelAddress, novaposhta.MethodUpdate))
}

func TestResolveSender(t *testing.T) {
	api := novaposhta.NewMockAPIClient()
	api.SenderRef = "sender-1"
	resolver := newTestResolver(api, mock.NewCounterparties())

	sender, err := resolver.ResolveSender(context.Background(), "sender-1")

	require.NoError(t, err)
	assert.Equal(t, "sender-1", sender.CounterAgent.Ref)
	assert.NotEmpty(t, sender.CounterAgent.CityRef)
	assert.NotEmpty(t, sender.ContactPerson.Ref)
	assert.Equal(t, "380501112233", sender.ContactPerson.Phone)
	assert.NotEmpty(t, sender.Address.Ref)
	assert.Equal(t, "sender-1", sender.Address.CounterAgentRef)
}

func TestResolveSender_Missing(t *testing.T) {
	empty := func(ctx context.Context, props any) (*novaposhta.Response, error) { return novaposhta.OK() }

	tests := []struct {
		name      string
		senderRef string
		method    string
	}{
		{name: "unknown sender ref", senderRef: "sender-other"},
		{name: "no contact person", senderRef: "sender-1", method: novaposhta.MethodGetCounterpartyContactPersons},
		{name: "no address", senderRef: "sender-1", method: novaposhta.MethodGetCounterpartyAddresses},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := novaposhta.NewMockAPIClient()
			api.SenderRef = "sender-1"
			if tt.method != "" {
				api.On(novaposhta.ModelCounterparty, tt.method, empty)
			}
			resolver := newTestResolver(api, mock.NewCounterparties())

			_, err := resolver.ResolveSender(context.Background(), tt.senderRef)

			assert.ErrorIs(t, err, shipment.ErrSenderConfigurationMissing)
		})
	}
}
