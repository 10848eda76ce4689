// Package shipment provisions carrier shipment documents for paid orders.
//
// Provisioning is a saga of dependent carrier calls: resolve the destination
// warehouse, ensure the recipient counterparty and bind its address, resolve
// the sender, request the internet document and persist it. The saga stops at
// the first failing step and reports it as a *ProvisionError.
package shipment

import (
	"fmt"
	"strings"
	"time"
)

// Customer is the buyer data carried by an order.
type Customer struct {
	FirstName  string
	LastName   string
	MiddleName string
	Phone      string
	Email      string
	City       string
	Address    string // free text delivery address
}

// Order is the read-only order input of the workflow.
type Order struct {
	ID       int64
	Customer Customer
}

// Warehouse is a carrier pickup point resolved for one provisioning run.
type Warehouse struct {
	Ref          string
	Description  string
	ShortAddress string
	CityRef      string
	Index        string
}

// StreetComponents are parsed from a "<city>, <street>, <building>" short address.
type StreetComponents struct {
	StreetName     string
	BuildingNumber string
}

// CounterAgent is a sender or recipient registered with the carrier.
type CounterAgent struct {
	Ref              string
	FirstName        string
	LastName         string
	MiddleName       string
	Phone            string
	Email            string
	CounterpartyType string
	CityRef          string
	ContactPersons   []string
}

// ContactPerson is a contact of a counterparty.
type ContactPerson struct {
	Ref       string
	FirstName string
	LastName  string
	Phone     string
}

// CounterAgentAddress is a registered address of a counterparty.
type CounterAgentAddress struct {
	Ref             string
	CounterAgentRef string
	StreetRef       string
	BuildingNumber  string
	Description     string
}

// Sender bundles the resolved sender-side references.
type Sender struct {
	CounterAgent  CounterAgent
	ContactPerson ContactPerson
	Address       CounterAgentAddress
}

// ShipmentDocument is the carrier-issued internet document of an order.
type ShipmentDocument struct {
	Ref                   string    `json:"ref"`
	CostOnSite            float64   `json:"costOnSite"`
	EstimatedDeliveryDate string    `json:"estimatedDeliveryDate"`
	IntDocNumber          string    `json:"intDocNumber"`
	TypeDocument          string    `json:"typeDocument"`
	OrderID               int64     `json:"orderId"`
	CreatedAt             time.Time `json:"createdAt"`
}

// Parameters are the caller-supplied shipment parameters. They are validated
// upstream; Provision only checks that the required ones are present.
type Parameters struct {
	SenderWarehouseIndex string    `json:"senderWarehouseIndex"`
	PayerType            string    `json:"payerType"`
	PaymentMethod        string    `json:"paymentMethod"`
	ShipDate             time.Time `json:"shipDate"`
	Weight               float64   `json:"weight"`
	ServiceType          string    `json:"serviceType"`
	SeatsAmount          int       `json:"seatsAmount"`
	Description          string    `json:"description"`
	DeclaredCost         float64   `json:"declaredCost"`
	GoodsCost            float64   `json:"goodsCost"`
	CargoType            string    `json:"cargoType,omitempty"`
}

// Validate reports every missing required parameter.
func (p Parameters) Validate() error {
	var missing []string
	if p.PayerType == "" {
		missing = append(missing, "payerType")
	}
	if p.PaymentMethod == "" {
		missing = append(missing, "paymentMethod")
	}
	if p.ShipDate.IsZero() {
		missing = append(missing, "shipDate")
	}
	if p.Weight <= 0 {
		missing = append(missing, "weight")
	}
	if p.ServiceType == "" {
		missing = append(missing, "serviceType")
	}
	if p.SeatsAmount <= 0 {
		missing = append(missing, "seatsAmount")
	}
	if p.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing parameters: %s", strings.Join(missing, ", "))
	}
	return nil
}
