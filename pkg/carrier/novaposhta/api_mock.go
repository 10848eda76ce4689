package novaposhta

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// HandlerFunc answers one model/method pair in MockAPIClient.
type HandlerFunc func(ctx context.Context, properties any) (*Response, error)

// RecordedCall is a request observed by MockAPIClient.
type RecordedCall struct {
	Model      string
	Method     string
	Properties any
}

// MockAPIClient is a mock implementation of APIClient for testing and local runs.
// Without a registered handler it answers every method with plausible data.
type MockAPIClient struct {
	SimulateErrors  bool
	SimulateLatency time.Duration

	// SenderRef is the ref reported for the default sender counterparty.
	SenderRef string

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	calls    []RecordedCall
}

// NewMockAPIClient creates a new mock API client with default behavior.
func NewMockAPIClient() *MockAPIClient {
	return &MockAPIClient{
		SenderRef: "sender-" + uuid.New().String()[:8],
		handlers:  make(map[string]HandlerFunc),
	}
}

// On registers a handler for a model/method pair, replacing the default answer.
func (m *MockAPIClient) On(model, method string, fn HandlerFunc) *MockAPIClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[model+"."+method] = fn
	return m
}

// Calls returns a copy of all recorded calls in order.
func (m *MockAPIClient) Calls() []RecordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]RecordedCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount returns how many times a model/method pair was called.
func (m *MockAPIClient) CallCount(model, method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if c.Model == model && c.Method == method {
			n++
		}
	}
	return n
}

// Call records the request and dispatches it to a handler or the default answer.
func (m *MockAPIClient) Call(ctx context.Context, modelName, method string, properties any) (*Response, error) {
	if m.SimulateLatency > 0 {
		select {
		case <-time.After(m.SimulateLatency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	m.calls = append(m.calls, RecordedCall{Model: modelName, Method: method, Properties: properties})
	handler := m.handlers[modelName+"."+method]
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if m.SimulateErrors {
		return nil, fmt.Errorf("simulated transport error")
	}

	if handler != nil {
		return handler(ctx, properties)
	}

	return m.defaultResponse(modelName, method, properties)
}

func (m *MockAPIClient) defaultResponse(modelName, method string, properties any) (*Response, error) {
	switch modelName + "." + method {
	case ModelAddress + "." + MethodGetWarehouses:
		return OK(Warehouse{
			Ref:             "wh-" + uuid.New().String()[:8],
			Description:     "Відділення №22",
			ShortAddress:    "Київ, Хрещатик вул., 22",
			CityRef:         "8d5a980d-391c-11dd-90d9-001a92567626",
			CityDescription: "Київ",
			Number:          "22",
			WarehouseIndex:  "1/22",
		})
	case ModelAddress + "." + MethodGetStreet:
		return OK(Street{
			Ref:         "street-" + uuid.New().String()[:8],
			Description: "Хрещатик",
			StreetsType: "вул.",
		})
	case ModelAddress + "." + MethodUpdate:
		req, _ := properties.(AddressUpdateRequest)
		return OK(Address{
			Ref:            req.Ref,
			Description:    "Хрещатик вул. " + req.BuildingNumber,
			StreetRef:      req.StreetRef,
			BuildingNumber: req.BuildingNumber,
		})
	case ModelCounterpartyGen + "." + MethodSave:
		req, _ := properties.(CounterpartySaveRequest)
		return OK(Counterparty{
			Ref:              "cp-" + uuid.New().String()[:8],
			Description:      req.LastName + " " + req.FirstName,
			FirstName:        req.FirstName,
			LastName:         req.LastName,
			MiddleName:       req.MiddleName,
			CounterpartyType: req.CounterpartyType,
			ContactPerson: ContactPersonList{
				Success: true,
				Data: []ContactPerson{{
					Ref:       "contact-" + uuid.New().String()[:8],
					FirstName: req.FirstName,
					LastName:  req.LastName,
					Phones:    req.Phone,
				}},
			},
		})
	case ModelCounterparty + "." + MethodGetCounterparties:
		return OK(Counterparty{
			Ref:              m.SenderRef,
			Description:      "ФОП Відправник",
			FirstName:        "Олена",
			LastName:         "Коваль",
			City:             "8d5a980d-391c-11dd-90d9-001a92567626",
			CounterpartyType: CounterpartyPrivatePerson,
		})
	case ModelCounterparty + "." + MethodGetCounterpartyAddresses:
		return OK(Address{
			Ref:         "addr-" + uuid.New().String()[:8],
			Description: "Київ, Відділення №1",
		})
	case ModelCounterparty + "." + MethodGetCounterpartyContactPersons:
		return OK(ContactPerson{
			Ref:         "contact-" + uuid.New().String()[:8],
			Description: "Коваль Олена",
			FirstName:   "Олена",
			LastName:    "Коваль",
			Phones:      "380501112233",
		})
	case ModelInternetDocument + "." + MethodSave:
		return OK(InternetDocument{
			Ref:                   "doc-" + uuid.New().String()[:8],
			CostOnSite:            70,
			EstimatedDeliveryDate: time.Now().AddDate(0, 0, 2).Format("02.01.2006"),
			IntDocNumber:          fmt.Sprintf("2045%010d", time.Now().UnixNano()%10000000000),
			TypeDocument:          "InternetDocument",
		})
	case ModelInternetDocument + "." + MethodDelete:
		req, _ := properties.(DeleteDocumentsRequest)
		items := make([]any, 0, len(req.DocumentRefs))
		for _, ref := range req.DocumentRefs {
			items = append(items, DeletedDocument{Ref: ref})
		}
		return OK(items...)
	default:
		return Rejected(fmt.Sprintf("Method %s.%s is not supported by the mock", modelName, method)), nil
	}
}

// OK builds a successful response envelope from data items.
func OK(items ...any) (*Response, error) {
	data := make([]json.RawMessage, 0, len(items))
	for _, item := range items {
		raw, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		data = append(data, raw)
	}
	return &Response{Success: true, Data: data}, nil
}

// Rejected builds a success=false response envelope carrying carrier errors.
func Rejected(errs ...string) *Response {
	return &Response{Success: false, Data: []json.RawMessage{}, Errors: errs}
}

// Ensure MockAPIClient implements APIClient interface
var _ APIClient = (*MockAPIClient)(nil)
