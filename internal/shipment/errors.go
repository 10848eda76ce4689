package shipment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tournevent/shipdoc/pkg/carrier/novaposhta"
)

// Code classifies a provisioning failure. Each code belongs to one saga step.
type Code string

const (
	CodeInvalidParameters                Code = "INVALID_PARAMETERS"
	CodeOrderNotFound                    Code = "ORDER_NOT_FOUND"
	CodeDocumentAlreadyExists            Code = "DOCUMENT_ALREADY_EXISTS"
	CodeDestinationWarehouseNotFound     Code = "DESTINATION_WAREHOUSE_NOT_FOUND"
	CodeMalformedAddress                 Code = "MALFORMED_ADDRESS"
	CodeRecipientCreateFailed            Code = "RECIPIENT_CREATE_FAILED"
	CodeAmbiguousOrMissingRecipientMatch Code = "AMBIGUOUS_OR_MISSING_RECIPIENT_MATCH"
	CodeRecipientAddressMissing          Code = "RECIPIENT_ADDRESS_MISSING"
	CodeStreetResolutionFailed           Code = "STREET_RESOLUTION_FAILED"
	CodeAddressBindFailed                Code = "ADDRESS_BIND_FAILED"
	CodeSenderConfigurationMissing       Code = "SENDER_CONFIGURATION_MISSING"
	CodeCarrierRejected                  Code = "CARRIER_REJECTED"
	CodeEmptyCarrierResponse             Code = "EMPTY_CARRIER_RESPONSE"
	CodePersistenceFailed                Code = "PERSISTENCE_FAILED"
	CodeTransportError                   Code = "TRANSPORT_ERROR"
	CodeCancelled                        Code = "CANCELLED"
)

// State is a provisioning saga state. States advance strictly in order.
type State string

const (
	StatePending               State = "Pending"
	StateOrderLoaded           State = "OrderLoaded"
	StateDestinationResolved   State = "DestinationResolved"
	StateRecipientEnsured      State = "RecipientEnsured"
	StateRecipientAddressBound State = "RecipientAddressBound"
	StateSenderResolved        State = "SenderResolved"
	StateDocumentRequested     State = "DocumentRequested"
	StatePersisted             State = "Persisted"
)

// mutatesRemote reports whether a failure while reaching s may leave
// carrier-side state that a blind retry would duplicate.
func (s State) mutatesRemote() bool {
	switch s {
	case StateRecipientAddressBound, StateSenderResolved, StateDocumentRequested, StatePersisted:
		return true
	}
	return false
}

// ProvisionError reports the step at which provisioning stopped.
type ProvisionError struct {
	Code Code
	// Step is the state the saga was trying to reach.
	Step State
	// Completed is the last state reached before the failure.
	Completed     State
	Message       string
	CarrierErrors []string
	Retryable     bool
	Cause         error
}

// Error implements the error interface.
func (e *ProvisionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "provisioning failed at %s (%s): %s", e.Step, e.Code, e.Message)
	if len(e.CarrierErrors) > 0 {
		fmt.Fprintf(&b, " [%s]", strings.Join(e.CarrierErrors, "; "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *ProvisionError) Unwrap() error {
	return e.Cause
}

// Is matches another *ProvisionError by code.
func (e *ProvisionError) Is(target error) bool {
	t, ok := target.(*ProvisionError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds a cause to the error.
func (e *ProvisionError) WithCause(err error) *ProvisionError {
	e.Cause = err
	return e
}

// WithRetryable marks whether re-invoking Provision is safe.
func (e *ProvisionError) WithRetryable(retryable bool) *ProvisionError {
	e.Retryable = retryable
	return e
}

// NewProvisionError creates a new ProvisionError.
func NewProvisionError(code Code, step State, message string) *ProvisionError {
	return &ProvisionError{
		Code:    code,
		Step:    step,
		Message: message,
	}
}

// Sentinel errors, one per code, for use with errors.Is.
var (
	ErrInvalidParameters                = &ProvisionError{Code: CodeInvalidParameters}
	ErrOrderNotFound                    = &ProvisionError{Code: CodeOrderNotFound}
	ErrDocumentAlreadyExists            = &ProvisionError{Code: CodeDocumentAlreadyExists}
	ErrDestinationWarehouseNotFound     = &ProvisionError{Code: CodeDestinationWarehouseNotFound}
	ErrMalformedAddress                 = &ProvisionError{Code: CodeMalformedAddress}
	ErrRecipientCreateFailed            = &ProvisionError{Code: CodeRecipientCreateFailed}
	ErrAmbiguousOrMissingRecipientMatch = &ProvisionError{Code: CodeAmbiguousOrMissingRecipientMatch}
	ErrRecipientAddressMissing          = &ProvisionError{Code: CodeRecipientAddressMissing}
	ErrStreetResolutionFailed           = &ProvisionError{Code: CodeStreetResolutionFailed}
	ErrAddressBindFailed                = &ProvisionError{Code: CodeAddressBindFailed}
	ErrSenderConfigurationMissing       = &ProvisionError{Code: CodeSenderConfigurationMissing}
	ErrCarrierRejected                  = &ProvisionError{Code: CodeCarrierRejected}
	ErrEmptyCarrierResponse             = &ProvisionError{Code: CodeEmptyCarrierResponse}
	ErrPersistenceFailed                = &ProvisionError{Code: CodePersistenceFailed}
	ErrTransportError                   = &ProvisionError{Code: CodeTransportError}
	ErrCancelled                        = &ProvisionError{Code: CodeCancelled}
)

// Storage-level sentinels returned by repositories.
var (
	// ErrDocumentNotFound indicates no shipment document matches the key.
	ErrDocumentNotFound = errors.New("shipment document not found")

	// ErrDocumentExists indicates the order already has a shipment document.
	ErrDocumentExists = errors.New("shipment document already exists")

	// ErrRevocationUnconfirmed indicates the carrier did not confirm a delete.
	ErrRevocationUnconfirmed = errors.New("carrier did not confirm document revocation")

	// ErrOrderMissing is returned by an OrderProvider for unknown orders.
	ErrOrderMissing = errors.New("order not found")
)

// IsRetryable reports whether Provision may be re-invoked safely after err.
func IsRetryable(err error) bool {
	var pe *ProvisionError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// carrierFailure maps an error returned by a carrier call at step to a
// ProvisionError. Carrier rejections get code; transport failures and
// cancellation keep their own codes so operators can tell them apart.
func carrierFailure(step State, code Code, message string, err error) *ProvisionError {
	var apiErr *novaposhta.APIError
	switch {
	case errors.Is(err, context.Canceled):
		return NewProvisionError(CodeCancelled, step, "provisioning cancelled").WithCause(err)
	case errors.As(err, &apiErr):
		pe := NewProvisionError(code, step, message).WithCause(err)
		pe.CarrierErrors = apiErr.Errors
		return pe
	default:
		return NewProvisionError(CodeTransportError, step, "carrier unreachable").WithCause(err)
	}
}
