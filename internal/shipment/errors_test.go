package shipment_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/tournevent/shipdoc/internal/shipment"
)

func TestProvisionError_Error(t *testing.T) {
	err := shipment.NewProvisionError(shipment.CodeCarrierRejected, shipment.StateDocumentRequested, "internet document rejected")
	err.CarrierErrors = []string{"Weight is invalid", "Cost is required"}

	assert.Equal(t,
		"provisioning failed at DocumentRequested (CARRIER_REJECTED): internet document rejected [Weight is invalid; Cost is required]",
		err.Error())
}

func TestProvisionError_WithCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := shipment.NewProvisionError(shipment.CodeTransportError, shipment.StateRecipientEnsured, "carrier unreachable").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestProvisionError_IsMatchesByCode(t *testing.T) {
	err := shipment.NewProvisionError(shipment.CodeStreetResolutionFailed, shipment.StateRecipientAddressBound, "no street")
	wrapped := fmt.Errorf("order 42: %w", err)

	assert.ErrorIs(t, wrapped, shipment.ErrStreetResolutionFailed)
	assert.NotErrorIs(t, wrapped, shipment.ErrAddressBindFailed)
	assert.NotErrorIs(t, wrapped, context.Canceled)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, shipment.IsRetryable(
		shipment.NewProvisionError(shipment.CodeDestinationWarehouseNotFound, shipment.StateDestinationResolved, "x").WithRetryable(true)))
	assert.False(t, shipment.IsRetryable(
		shipment.NewProvisionError(shipment.CodeCarrierRejected, shipment.StateDocumentRequested, "x")))
	assert.False(t, shipment.IsRetryable(errors.New("plain")))
	assert.False(t, shipment.IsRetryable(nil))
}

func TestParameters_Validate(t *testing.T) {
	assert.NoError(t, testParams.Validate())

	err := shipment.Parameters{PayerType: "Sender", ShipDate: time.Now()}.Validate()
	if assert.Error(t, err) {
		for _, field := range []string{"paymentMethod", "weight", "serviceType", "seatsAmount", "description"} {
			assert.Contains(t, err.Error(), field)
		}
		assert.NotContains(t, err.Error(), "payerType")
	}
}
