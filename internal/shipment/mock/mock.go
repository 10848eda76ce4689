// Package mock provides in-memory implementations of the shipment ports for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tournevent/shipdoc/internal/shipment"
)

// Orders is an in-memory shipment.OrderProvider.
type Orders struct {
	mu     sync.RWMutex
	orders map[int64]shipment.Order

	// Err, when set, is returned by GetByID.
	Err error
}

// NewOrders creates an order provider holding the given orders.
func NewOrders(orders ...shipment.Order) *Orders {
	o := &Orders{orders: make(map[int64]shipment.Order)}
	for _, order := range orders {
		o.orders[order.ID] = order
	}
	return o
}

// GetByID returns a copy of the order or shipment.ErrOrderMissing.
func (o *Orders) GetByID(ctx context.Context, id int64) (*shipment.Order, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.Err != nil {
		return nil, o.Err
	}
	order, ok := o.orders[id]
	if !ok {
		return nil, shipment.ErrOrderMissing
	}
	return &order, nil
}

// Documents is an in-memory shipment.DocumentRepository.
type Documents struct {
	mu   sync.RWMutex
	docs map[int64]shipment.ShipmentDocument

	// FailAdd, when set, is returned by Add.
	FailAdd error
}

// NewDocuments creates an empty document repository.
func NewDocuments(docs ...shipment.ShipmentDocument) *Documents {
	d := &Documents{docs: make(map[int64]shipment.ShipmentDocument)}
	for _, doc := range docs {
		d.docs[doc.OrderID] = doc
	}
	return d
}

// Add stores a document, one per order.
func (d *Documents) Add(ctx context.Context, doc *shipment.ShipmentDocument) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailAdd != nil {
		return d.FailAdd
	}
	if _, ok := d.docs[doc.OrderID]; ok {
		return shipment.ErrDocumentExists
	}
	d.docs[doc.OrderID] = *doc
	return nil
}

// GetByOrderID returns the document of an order.
func (d *Documents) GetByOrderID(ctx context.Context, orderID int64) (*shipment.ShipmentDocument, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	doc, ok := d.docs[orderID]
	if !ok {
		return nil, shipment.ErrDocumentNotFound
	}
	return &doc, nil
}

// GetByRef returns the document with the carrier ref.
func (d *Documents) GetByRef(ctx context.Context, ref string) (*shipment.ShipmentDocument, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.docs {
		if doc.Ref == ref {
			return &doc, nil
		}
	}
	return nil, shipment.ErrDocumentNotFound
}

// List returns documents ordered by order id.
func (d *Documents) List(ctx context.Context) ([]shipment.ShipmentDocument, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]shipment.ShipmentDocument, 0, len(d.docs))
	for _, doc := range d.docs {
		out = append(out, doc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out, nil
}

// DeleteByRef removes the document with the carrier ref.
func (d *Documents) DeleteByRef(ctx context.Context, ref string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, doc := range d.docs {
		if doc.Ref == ref {
			delete(d.docs, id)
			return nil
		}
	}
	return shipment.ErrDocumentNotFound
}

// Len returns the number of stored documents.
func (d *Documents) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.docs)
}

// Counterparties is an in-memory, append-only shipment.CounterpartyRepository.
type Counterparties struct {
	mu   sync.RWMutex
	rows []shipment.CounterAgent
}

// NewCounterparties creates a mirror holding the given rows.
func NewCounterparties(rows ...shipment.CounterAgent) *Counterparties {
	return &Counterparties{rows: rows}
}

// Add appends a row.
func (c *Counterparties) Add(ctx context.Context, agent *shipment.CounterAgent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rows = append(c.rows, *agent)
	return nil
}

// FindByName returns rows with exactly this first and last name.
func (c *Counterparties) FindByName(ctx context.Context, firstName, lastName string) ([]shipment.CounterAgent, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []shipment.CounterAgent
	for _, row := range c.rows {
		if row.FirstName == firstName && row.LastName == lastName {
			out = append(out, row)
		}
	}
	return out, nil
}

// Rows returns a copy of all rows.
func (c *Counterparties) Rows() []shipment.CounterAgent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]shipment.CounterAgent, len(c.rows))
	copy(out, c.rows)
	return out
}

// Notification is one recorded ShipmentCreated call.
type Notification struct {
	OrderID   int64
	DocNumber string
	// Deadline is the deadline of the call's context, zero when unbounded.
	Deadline time.Time
}

// Notifier records shipment notifications.
type Notifier struct {
	mu   sync.Mutex
	sent []Notification

	// Err, when set, is returned by ShipmentCreated.
	Err error
}

// ShipmentCreated records the notification.
func (n *Notifier) ShipmentCreated(ctx context.Context, order *shipment.Order, docNumber string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	deadline, _ := ctx.Deadline()
	n.sent = append(n.sent, Notification{
		OrderID:   order.ID,
		DocNumber: docNumber,
		Deadline:  deadline,
	})
	return n.Err
}

// Sent returns the recorded notifications.
func (n *Notifier) Sent() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.sent))
	copy(out, n.sent)
	return out
}

var (
	_ shipment.OrderProvider          = (*Orders)(nil)
	_ shipment.DocumentRepository     = (*Documents)(nil)
	_ shipment.CounterpartyRepository = (*Counterparties)(nil)
	_ shipment.Notifier               = (*Notifier)(nil)
)
