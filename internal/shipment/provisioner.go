package shipment

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/tournevent/shipdoc/internal/telemetry"
	"github.com/tournevent/shipdoc/pkg/carrier/novaposhta"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/tournevent/shipdoc/internal/shipment"

// Default cargo type when the caller leaves it empty.
const defaultCargoType = "Parcel"

// notifyTimeout bounds the shipment-created notification.
const notifyTimeout = 3 * time.Second

// ProvisionerConfig holds provisioning settings.
type ProvisionerConfig struct {
	// SenderRef is the carrier ref of the account's sender counterparty.
	SenderRef string
	// BatchConcurrency bounds ProvisionBatch parallelism.
	BatchConcurrency int
}

// Dependencies are the collaborators of a Provisioner.
type Dependencies struct {
	Orders         OrderProvider
	Carrier        *novaposhta.Client
	Documents      DocumentRepository
	Counterparties CounterpartyRepository
	// Notifier is optional.
	Notifier Notifier
	Metrics  *telemetry.Metrics
	// Tracer is optional; the global tracer provider is used when nil.
	Tracer trace.Tracer
}

// Provisioner drives the provisioning saga for one order at a time.
type Provisioner struct {
	config         ProvisionerConfig
	orders         OrderProvider
	carrier        *novaposhta.Client
	documents      DocumentRepository
	warehouses     *WarehouseResolver
	counterparties *CounterpartyResolver
	notifier       Notifier
	metrics        *telemetry.Metrics
	logger         *otelzap.Logger
	tracer         trace.Tracer
}

// NewProvisioner creates a new Provisioner.
func NewProvisioner(cfg ProvisionerConfig, deps Dependencies, logger *otelzap.Logger) *Provisioner {
	if cfg.BatchConcurrency <= 0 {
		cfg.BatchConcurrency = 4
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	return &Provisioner{
		config:         cfg,
		orders:         deps.Orders,
		carrier:        deps.Carrier,
		documents:      deps.Documents,
		warehouses:     NewWarehouseResolver(deps.Carrier, logger),
		counterparties: NewCounterpartyResolver(deps.Carrier, deps.Counterparties, logger),
		notifier:       deps.Notifier,
		metrics:        deps.Metrics,
		logger:         logger,
		tracer:         tracer,
	}
}

// run carries the outputs of completed steps to the next ones.
type run struct {
	orderID   int64
	params    Parameters
	order     *Order
	warehouse *Warehouse
	recipient *CounterAgent
	address   *CounterAgentAddress
	sender    *Sender
	document  *ShipmentDocument
}

type step struct {
	target State
	exec   func(ctx context.Context, r *run) error
}

func (p *Provisioner) steps() []step {
	return []step{
		{StateOrderLoaded, p.loadOrder},
		{StateDestinationResolved, p.resolveDestination},
		{StateRecipientEnsured, p.ensureRecipient},
		{StateRecipientAddressBound, p.bindRecipientAddress},
		{StateSenderResolved, p.resolveSender},
		{StateDocumentRequested, p.requestDocument},
		{StatePersisted, p.persist},
	}
}

// Provision obtains an internet document for the order and persists it.
// Steps run strictly in sequence and the first failure stops the run with a
// *ProvisionError naming the step. Nothing is persisted unless every step
// succeeds; remote counterparties created before a failure are not undone.
func (p *Provisioner) Provision(ctx context.Context, orderID int64, params Parameters) (*ShipmentDocument, error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "shipment.Provision",
		trace.WithAttributes(attribute.Int64("order.id", orderID)))
	defer span.End()

	logger := p.logger.WithOptions(zap.Fields(zap.Int64("order_id", orderID))).Ctx(ctx)

	if err := params.Validate(); err != nil {
		pe := NewProvisionError(CodeInvalidParameters, StateOrderLoaded, err.Error()).WithRetryable(true)
		pe.Completed = StatePending
		p.fail(span, logger, pe, start)
		return nil, pe
	}

	r := &run{orderID: orderID, params: params}
	completed := StatePending
	for _, s := range p.steps() {
		if err := ctx.Err(); err != nil {
			pe := interrupted(s.target, r, err)
			p.finalize(pe, completed)
			p.fail(span, logger, pe, start, issuedFields(r)...)
			return nil, pe
		}

		if err := p.runStep(ctx, s, r); err != nil {
			pe := asProvisionError(s.target, err)
			p.finalize(pe, completed)
			p.fail(span, logger, pe, start, issuedFields(r)...)
			return nil, pe
		}
		completed = s.target
		logger.Debug("Provisioning step completed", zap.String("step", string(completed)))
	}

	p.metrics.RecordProvision("", "", time.Since(start))
	span.SetAttributes(attribute.String("document.number", r.document.IntDocNumber))
	logger.Info("Shipment document provisioned",
		zap.String("document_ref", r.document.Ref),
		zap.String("document_number", r.document.IntDocNumber),
	)

	p.notify(ctx, logger, r)
	return r.document, nil
}

func (p *Provisioner) runStep(ctx context.Context, s step, r *run) error {
	ctx, span := p.tracer.Start(ctx, "shipment.step."+string(s.target))
	defer span.End()

	if err := s.exec(ctx, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// finalize records the last completed state and decides whether a manual
// re-run is safe. Runs that failed after the recipient address could have
// been rebound are fail-forward and need an operator.
func (p *Provisioner) finalize(pe *ProvisionError, completed State) {
	pe.Completed = completed
	switch pe.Code {
	case CodeSenderConfigurationMissing, CodeDocumentAlreadyExists, CodePersistenceFailed:
		pe.Retryable = false
	default:
		pe.Retryable = !pe.Step.mutatesRemote()
	}
}

func (p *Provisioner) fail(span trace.Span, logger otelzap.LoggerWithCtx, pe *ProvisionError, start time.Time, extra ...zap.Field) {
	p.metrics.RecordProvision(string(pe.Step), string(pe.Code), time.Since(start))
	span.RecordError(pe)
	span.SetStatus(codes.Error, string(pe.Code))

	fields := []zap.Field{
		zap.String("step", string(pe.Step)),
		zap.String("completed", string(pe.Completed)),
		zap.String("code", string(pe.Code)),
		zap.Strings("carrier_errors", pe.CarrierErrors),
		zap.Bool("retryable", pe.Retryable),
		zap.Error(pe.Cause),
	}
	logger.Warn("Shipment provisioning failed", append(fields, extra...)...)
}

// issuedFields identifies a document the carrier issued before the run failed.
func issuedFields(r *run) []zap.Field {
	if r.document == nil {
		return nil
	}
	return []zap.Field{
		zap.String("document_ref", r.document.Ref),
		zap.String("document_number", r.document.IntDocNumber),
	}
}

// notify runs detached from the caller's cancellation and bounded by
// notifyTimeout. Errors are logged only.
func (p *Provisioner) notify(ctx context.Context, logger otelzap.LoggerWithCtx, r *run) {
	if p.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	if err := p.notifier.ShipmentCreated(ctx, r.order, r.document.IntDocNumber); err != nil {
		logger.Warn("Shipment notification failed",
			zap.String("document_number", r.document.IntDocNumber),
			zap.Error(err),
		)
	}
}

// interrupted reports a context that ended between steps. Only cancellation
// is Cancelled; an expired deadline is treated as a transport failure.
func interrupted(step State, r *run, err error) *ProvisionError {
	code, message := CodeCancelled, "provisioning cancelled"
	if !errors.Is(err, context.Canceled) {
		code, message = CodeTransportError, "provisioning deadline exceeded"
	}
	if r.document != nil {
		message += "; document " + r.document.IntDocNumber + " (ref " + r.document.Ref + ") was issued but not stored"
	}
	return NewProvisionError(code, step, message).WithCause(err)
}

func asProvisionError(step State, err error) *ProvisionError {
	var pe *ProvisionError
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, context.Canceled) {
		return NewProvisionError(CodeCancelled, step, "provisioning cancelled").WithCause(err)
	}
	return NewProvisionError(CodeTransportError, step, "unexpected failure").WithCause(err)
}

// ============================================================================
// Steps
// ============================================================================

func (p *Provisioner) loadOrder(ctx context.Context, r *run) error {
	order, err := p.orders.GetByID(ctx, r.orderID)
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, ErrOrderMissing) {
		return NewProvisionError(CodeOrderNotFound, StateOrderLoaded,
			"order "+strconv.FormatInt(r.orderID, 10)+" does not exist").WithCause(err)
	}
	if err != nil {
		return NewProvisionError(CodeTransportError, StateOrderLoaded, "order lookup failed").WithCause(err)
	}

	existing, err := p.documents.GetByOrderID(ctx, r.orderID)
	switch {
	case err == nil:
		return NewProvisionError(CodeDocumentAlreadyExists, StateOrderLoaded,
			"order already has document "+existing.IntDocNumber)
	case !errors.Is(err, ErrDocumentNotFound):
		return NewProvisionError(CodePersistenceFailed, StateOrderLoaded, "document lookup failed").WithCause(err)
	}

	r.order = order
	return nil
}

func (p *Provisioner) resolveDestination(ctx context.Context, r *run) error {
	wh, err := p.warehouses.ResolveDestination(ctx, r.order.Customer.City, r.order.Customer.Address)
	if err != nil {
		return err
	}
	r.warehouse = wh
	return nil
}

func (p *Provisioner) ensureRecipient(ctx context.Context, r *run) error {
	agent, err := p.counterparties.EnsureRecipient(ctx, r.order.Customer)
	if err != nil {
		return err
	}
	r.recipient = agent
	return nil
}

func (p *Provisioner) bindRecipientAddress(ctx context.Context, r *run) error {
	address, err := p.counterparties.ResolveAndBindAddress(ctx, r.recipient.Ref, r.warehouse)
	if err != nil {
		return err
	}
	r.address = address
	return nil
}

func (p *Provisioner) resolveSender(ctx context.Context, r *run) error {
	sender, err := p.counterparties.ResolveSender(ctx, p.config.SenderRef)
	if err != nil {
		return err
	}
	r.sender = sender
	return nil
}

func (p *Provisioner) requestDocument(ctx context.Context, r *run) error {
	items, err := p.carrier.SaveInternetDocument(ctx, buildDocumentRequest(r))
	if err != nil {
		return carrierFailure(StateDocumentRequested, CodeCarrierRejected, "internet document rejected", err)
	}
	if len(items) == 0 {
		return NewProvisionError(CodeEmptyCarrierResponse, StateDocumentRequested,
			"carrier accepted the document but returned no data")
	}

	item := items[0]
	r.document = &ShipmentDocument{
		Ref:                   item.Ref,
		CostOnSite:            item.CostOnSite,
		EstimatedDeliveryDate: item.EstimatedDeliveryDate,
		IntDocNumber:          item.IntDocNumber,
		TypeDocument:          item.TypeDocument,
		OrderID:               r.orderID,
		CreatedAt:             time.Now().UTC(),
	}
	return nil
}

func (p *Provisioner) persist(ctx context.Context, r *run) error {
	if err := p.documents.Add(ctx, r.document); err != nil {
		code := CodePersistenceFailed
		if errors.Is(err, ErrDocumentExists) {
			code = CodeDocumentAlreadyExists
		}
		return NewProvisionError(code, StatePersisted,
			"document "+r.document.IntDocNumber+" was issued but not stored").WithCause(err)
	}
	return nil
}

func buildDocumentRequest(r *run) novaposhta.InternetDocumentRequest {
	cargoType := r.params.CargoType
	if cargoType == "" {
		cargoType = defaultCargoType
	}

	contactRecipient := r.recipient.Ref
	if len(r.recipient.ContactPersons) > 0 {
		contactRecipient = r.recipient.ContactPersons[0]
	}

	req := novaposhta.InternetDocumentRequest{
		PayerType:     r.params.PayerType,
		PaymentMethod: r.params.PaymentMethod,
		DateTime:      r.params.ShipDate.Format("02.01.2006"),
		CargoType:     cargoType,
		Weight:        formatAmount(r.params.Weight),
		ServiceType:   r.params.ServiceType,
		SeatsAmount:   strconv.Itoa(r.params.SeatsAmount),
		Description:   r.params.Description,
		Cost:          formatAmount(r.params.DeclaredCost),

		CitySender:           r.sender.CounterAgent.CityRef,
		Sender:               r.sender.CounterAgent.Ref,
		SenderAddress:        r.sender.Address.Ref,
		ContactSender:        r.sender.ContactPerson.Ref,
		SendersPhone:         r.sender.ContactPerson.Phone,
		SenderWarehouseIndex: r.params.SenderWarehouseIndex,

		CityRecipient:           r.warehouse.CityRef,
		Recipient:               r.recipient.Ref,
		RecipientAddress:        r.address.Ref,
		ContactRecipient:        contactRecipient,
		RecipientsPhone:         r.order.Customer.Phone,
		RecipientWarehouseIndex: r.warehouse.Index,
	}
	if r.params.GoodsCost > 0 {
		req.AfterpaymentOnGoodsCost = formatAmount(r.params.GoodsCost)
	}
	return req
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
