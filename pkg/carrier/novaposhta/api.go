package novaposhta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// APIClient defines the single RPC entry point of the Nova Poshta API.
// Every operation is a POST of a model/method/properties envelope to one URL.
type APIClient interface {
	// Call sends one request envelope and returns the decoded response envelope.
	// A carrier-reported failure (success=false) is a normal outcome and is
	// returned with a nil error; only transport and decode failures return an error.
	Call(ctx context.Context, modelName, method string, properties any) (*Response, error)
}

// Models and methods used by the provisioning workflow.
const (
	ModelAddress          = "AddressGeneral"
	ModelCounterparty     = "Counterparty"
	ModelCounterpartyGen  = "CounterpartyGeneral"
	ModelInternetDocument = "InternetDocument"

	MethodGetWarehouses                 = "getWarehouses"
	MethodGetStreet                     = "getStreet"
	MethodUpdate                        = "update"
	MethodSave                          = "save"
	MethodDelete                        = "delete"
	MethodGetCounterparties             = "getCounterparties"
	MethodGetCounterpartyAddresses      = "getCounterpartyAddresses"
	MethodGetCounterpartyContactPersons = "getCounterpartyContactPersons"
)

// Counterparty classifications.
const (
	CounterpartyPrivatePerson = "PrivatePerson"
	PropertyRecipient         = "Recipient"
	PropertySender            = "Sender"
)

// ============================================================================
// Envelope types
// ============================================================================

// Request is the envelope posted to the API endpoint.
type Request struct {
	APIKey           string `json:"apiKey"`
	ModelName        string `json:"modelName"`
	CalledMethod     string `json:"calledMethod"`
	MethodProperties any    `json:"methodProperties"`
}

// Response is the envelope returned by the API endpoint.
// Field names are matched case-insensitively on decode.
type Response struct {
	Success  bool              `json:"success"`
	Data     []json.RawMessage `json:"data"`
	Errors   Messages          `json:"errors"`
	Warnings Messages          `json:"warnings"`
	Info     json.RawMessage   `json:"info,omitempty"`
}

// Messages is a list of carrier messages. The API sometimes encodes an empty
// list as an object, and keyed lists as {"code": "text"}; both decode here,
// keyed lists in key order.
type Messages []string

// UnmarshalJSON accepts an array of strings, an object of strings or null.
func (m *Messages) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*m = nil
		return nil
	}

	switch b[0] {
	case '[':
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		*m = list
		return nil
	case '{':
		var obj map[string]string
		if err := json.Unmarshal(b, &obj); err != nil {
			return err
		}
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		list := make([]string, 0, len(obj))
		for _, k := range keys {
			list = append(list, obj[k])
		}
		*m = list
		return nil
	default:
		return fmt.Errorf("unexpected messages encoding: %s", string(b))
	}
}

// APIError is returned by Client methods when the carrier answers success=false.
type APIError struct {
	Model    string
	Method   string
	Errors   []string
	Warnings []string
}

func (e *APIError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%s.%s rejected", e.Model, e.Method)
	}
	return fmt.Sprintf("%s.%s rejected: %s", e.Model, e.Method, strings.Join(e.Errors, "; "))
}

// ============================================================================
// Method properties
// ============================================================================

// WarehousesRequest filters AddressGeneral.getWarehouses.
type WarehousesRequest struct {
	CityName     string `json:"CityName,omitempty"`
	CityRef      string `json:"CityRef,omitempty"`
	FindByString string `json:"FindByString,omitempty"`
	Page         string `json:"Page,omitempty"`
	Limit        string `json:"Limit,omitempty"`
}

// StreetRequest filters AddressGeneral.getStreet.
type StreetRequest struct {
	CityRef      string `json:"CityRef"`
	FindByString string `json:"FindByString"`
	Page         string `json:"Page,omitempty"`
	Limit        string `json:"Limit,omitempty"`
}

// AddressUpdateRequest binds a street and building to a counterparty address.
type AddressUpdateRequest struct {
	Ref             string `json:"Ref"`
	CounterpartyRef string `json:"CounterpartyRef"`
	StreetRef       string `json:"StreetRef"`
	BuildingNumber  string `json:"BuildingNumber"`
	Flat            string `json:"Flat,omitempty"`
	Note            string `json:"Note,omitempty"`
}

// CounterpartySaveRequest creates a private-person counterparty.
type CounterpartySaveRequest struct {
	FirstName            string `json:"FirstName"`
	MiddleName           string `json:"MiddleName,omitempty"`
	LastName             string `json:"LastName"`
	Phone                string `json:"Phone"`
	Email                string `json:"Email,omitempty"`
	CounterpartyType     string `json:"CounterpartyType"`
	CounterpartyProperty string `json:"CounterpartyProperty"`
}

// CounterpartiesRequest lists counterparties of the account.
type CounterpartiesRequest struct {
	CounterpartyProperty string `json:"CounterpartyProperty"`
	Page                 string `json:"Page,omitempty"`
}

// CounterpartyRefRequest addresses one counterparty.
type CounterpartyRefRequest struct {
	Ref                  string `json:"Ref"`
	CounterpartyProperty string `json:"CounterpartyProperty,omitempty"`
}

// InternetDocumentRequest is the InternetDocument.save property set.
type InternetDocumentRequest struct {
	PayerType               string `json:"PayerType"`
	PaymentMethod           string `json:"PaymentMethod"`
	DateTime                string `json:"DateTime"`
	CargoType               string `json:"CargoType"`
	Weight                  string `json:"Weight"`
	ServiceType             string `json:"ServiceType"`
	SeatsAmount             string `json:"SeatsAmount"`
	Description             string `json:"Description"`
	Cost                    string `json:"Cost"`
	AfterpaymentOnGoodsCost string `json:"AfterpaymentOnGoodsCost,omitempty"`

	CitySender           string `json:"CitySender"`
	Sender               string `json:"Sender"`
	SenderAddress        string `json:"SenderAddress"`
	ContactSender        string `json:"ContactSender"`
	SendersPhone         string `json:"SendersPhone"`
	SenderWarehouseIndex string `json:"SenderWarehouseIndex,omitempty"`

	CityRecipient           string `json:"CityRecipient"`
	Recipient               string `json:"Recipient"`
	RecipientAddress        string `json:"RecipientAddress"`
	ContactRecipient        string `json:"ContactRecipient"`
	RecipientsPhone         string `json:"RecipientsPhone"`
	RecipientWarehouseIndex string `json:"RecipientWarehouseIndex,omitempty"`
}

// DeleteDocumentsRequest revokes internet documents.
type DeleteDocumentsRequest struct {
	DocumentRefs []string `json:"DocumentRefs"`
}

// ============================================================================
// Data items
// ============================================================================

// Warehouse is one getWarehouses data item.
type Warehouse struct {
	Ref             string `json:"Ref"`
	Description     string `json:"Description"`
	ShortAddress    string `json:"ShortAddress"`
	CityRef         string `json:"CityRef"`
	CityDescription string `json:"CityDescription"`
	Number          string `json:"Number"`
	WarehouseIndex  string `json:"WarehouseIndex"`
}

// Street is one getStreet data item.
type Street struct {
	Ref         string `json:"Ref"`
	Description string `json:"Description"`
	StreetsType string `json:"StreetsType"`
}

// Address is a counterparty address data item.
type Address struct {
	Ref            string `json:"Ref"`
	Description    string `json:"Description"`
	StreetRef      string `json:"StreetRef"`
	BuildingNumber string `json:"BuildingNumber"`
}

// ContactPerson is a counterparty contact person data item.
type ContactPerson struct {
	Ref         string `json:"Ref"`
	Description string `json:"Description"`
	FirstName   string `json:"FirstName"`
	LastName    string `json:"LastName"`
	MiddleName  string `json:"MiddleName"`
	Phones      string `json:"Phones"`
}

// ContactPersonList is the nested contact person list returned by save.
type ContactPersonList struct {
	Success bool            `json:"success"`
	Data    []ContactPerson `json:"data"`
}

// Counterparty is a counterparty data item.
type Counterparty struct {
	Ref              string            `json:"Ref"`
	Description      string            `json:"Description"`
	FirstName        string            `json:"FirstName"`
	LastName         string            `json:"LastName"`
	MiddleName       string            `json:"MiddleName"`
	City             string            `json:"City"`
	CounterpartyType string            `json:"CounterpartyType"`
	ContactPerson    ContactPersonList `json:"ContactPerson"`
}

// InternetDocument is one InternetDocument.save data item.
type InternetDocument struct {
	Ref                   string  `json:"Ref"`
	CostOnSite            float64 `json:"CostOnSite"`
	EstimatedDeliveryDate string  `json:"EstimatedDeliveryDate"`
	IntDocNumber          string  `json:"IntDocNumber"`
	TypeDocument          string  `json:"TypeDocument"`
}

// DeletedDocument is one InternetDocument.delete data item.
type DeletedDocument struct {
	Ref string `json:"Ref"`
}
