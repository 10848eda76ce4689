// Package novaposhta provides integration with the Nova Poshta JSON RPC API.
package novaposhta

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const carrierName = "novaposhta"

// DefaultBaseURL is the public JSON endpoint of the carrier API.
const DefaultBaseURL = "https://api.novaposhta.ua/v2.0/json/"

// CallObserver is notified after every carrier call.
type CallObserver func(model, method string, took time.Duration, err error)

// Config holds Nova Poshta configuration.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	UseMock bool // When true, uses mock API client

	// MockSenderRef is the sender ref answered by the mock API client.
	MockSenderRef string

	Observer CallObserver
}

// Client is the typed Nova Poshta client. Each method is one API call;
// it holds no business logic and never retries.
type Client struct {
	config    Config
	apiClient APIClient
	logger    *otelzap.Logger
}

// New creates a new Nova Poshta client.
// If cfg.UseMock is true, it uses a mock API client for local runs.
// Otherwise, it uses the real HTTP API client.
func New(cfg Config, logger *otelzap.Logger) *Client {
	var apiClient APIClient

	if cfg.UseMock {
		mock := NewMockAPIClient()
		if cfg.MockSenderRef != "" {
			mock.SenderRef = cfg.MockSenderRef
		}
		apiClient = mock
	} else {
		baseURL := cfg.BaseURL
		if baseURL == "" {
			baseURL = DefaultBaseURL
		}
		apiClient = NewHTTPAPIClient(HTTPAPIClientConfig{
			BaseURL: baseURL,
			APIKey:  cfg.APIKey,
			Timeout: cfg.Timeout,
		})
	}

	return NewWithAPIClient(cfg, apiClient, logger)
}

// NewWithAPIClient creates a new client with a custom API client.
// This is useful for injecting mock clients in tests.
func NewWithAPIClient(cfg Config, apiClient APIClient, logger *otelzap.Logger) *Client {
	return &Client{
		config:    cfg,
		apiClient: apiClient,
		logger:    logger,
	}
}

// Name returns the carrier name.
func (c *Client) Name() string {
	return carrierName
}

// GetWarehouses searches warehouses of a city by free text.
func (c *Client) GetWarehouses(ctx context.Context, req WarehousesRequest) ([]Warehouse, error) {
	return call[Warehouse](ctx, c, ModelAddress, MethodGetWarehouses, req)
}

// GetStreet searches streets of a city by name.
func (c *Client) GetStreet(ctx context.Context, req StreetRequest) ([]Street, error) {
	return call[Street](ctx, c, ModelAddress, MethodGetStreet, req)
}

// UpdateAddress binds a street and building to an existing counterparty address.
func (c *Client) UpdateAddress(ctx context.Context, req AddressUpdateRequest) ([]Address, error) {
	return call[Address](ctx, c, ModelAddress, MethodUpdate, req)
}

// SaveCounterparty creates a counterparty, or returns the existing one the
// carrier matches to the same person.
func (c *Client) SaveCounterparty(ctx context.Context, req CounterpartySaveRequest) ([]Counterparty, error) {
	return call[Counterparty](ctx, c, ModelCounterpartyGen, MethodSave, req)
}

// GetCounterparties lists the account's counterparties with the given property.
func (c *Client) GetCounterparties(ctx context.Context, property string) ([]Counterparty, error) {
	return call[Counterparty](ctx, c, ModelCounterparty, MethodGetCounterparties,
		CounterpartiesRequest{CounterpartyProperty: property})
}

// GetCounterpartyAddresses lists the registered addresses of a counterparty.
func (c *Client) GetCounterpartyAddresses(ctx context.Context, ref, property string) ([]Address, error) {
	return call[Address](ctx, c, ModelCounterparty, MethodGetCounterpartyAddresses,
		CounterpartyRefRequest{Ref: ref, CounterpartyProperty: property})
}

// GetCounterpartyContactPersons lists the contact persons of a counterparty.
func (c *Client) GetCounterpartyContactPersons(ctx context.Context, ref string) ([]ContactPerson, error) {
	return call[ContactPerson](ctx, c, ModelCounterparty, MethodGetCounterpartyContactPersons,
		CounterpartyRefRequest{Ref: ref})
}

// SaveInternetDocument requests a new internet document.
func (c *Client) SaveInternetDocument(ctx context.Context, req InternetDocumentRequest) ([]InternetDocument, error) {
	return call[InternetDocument](ctx, c, ModelInternetDocument, MethodSave, req)
}

// DeleteInternetDocument revokes internet documents by ref.
func (c *Client) DeleteInternetDocument(ctx context.Context, refs ...string) ([]DeletedDocument, error) {
	return call[DeletedDocument](ctx, c, ModelInternetDocument, MethodDelete,
		DeleteDocumentsRequest{DocumentRefs: refs})
}

// call performs one API call and decodes its data items into T.
// success=false is surfaced as *APIError; transport failures are returned as is.
func call[T any](ctx context.Context, c *Client, model, method string, props any) ([]T, error) {
	start := time.Now()
	resp, err := c.apiClient.Call(ctx, model, method, props)
	if err == nil && !resp.Success {
		err = &APIError{
			Model:    model,
			Method:   method,
			Errors:   resp.Errors,
			Warnings: resp.Warnings,
		}
	}
	if c.config.Observer != nil {
		c.config.Observer(model, method, time.Since(start), err)
	}
	if err != nil {
		c.logger.Ctx(ctx).Error("Nova Poshta API error",
			zap.String("model", model),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, err
	}

	if len(resp.Warnings) > 0 {
		c.logger.Ctx(ctx).Warn("Nova Poshta API warnings",
			zap.String("model", model),
			zap.String("method", method),
			zap.Strings("warnings", resp.Warnings),
		)
	}

	items := make([]T, 0, len(resp.Data))
	for i, raw := range resp.Data {
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("failed to decode %s.%s data item %d: %w", model, method, i, err)
		}
		items = append(items, item)
	}
	return items, nil
}
