package shipment

import (
	"context"
	"errors"

	"github.com/tournevent/shipdoc/pkg/carrier/novaposhta"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// CounterpartyResolver creates, finds and binds carrier counterparties.
type CounterpartyResolver struct {
	carrier *novaposhta.Client
	mirror  CounterpartyRepository
	logger  *otelzap.Logger
}

// NewCounterpartyResolver creates a new CounterpartyResolver.
func NewCounterpartyResolver(carrier *novaposhta.Client, mirror CounterpartyRepository, logger *otelzap.Logger) *CounterpartyResolver {
	return &CounterpartyResolver{
		carrier: carrier,
		mirror:  mirror,
		logger:  logger,
	}
}

// EnsureRecipient returns the recipient counterparty for customer, creating
// it on the carrier side only when the local mirror holds no counterparty
// with the same first and last name. The exact-name match is the only
// duplicate guard: two concurrent runs for the same customer can both create.
func (r *CounterpartyResolver) EnsureRecipient(ctx context.Context, customer Customer) (*CounterAgent, error) {
	existing, err := r.mirror.FindByName(ctx, customer.FirstName, customer.LastName)
	if errors.Is(err, context.Canceled) {
		return nil, NewProvisionError(CodeCancelled, StateRecipientEnsured, "provisioning cancelled").WithCause(err)
	}
	if err != nil {
		return nil, NewProvisionError(CodeRecipientCreateFailed, StateRecipientEnsured,
			"recipient mirror lookup failed").WithCause(err)
	}
	if len(existing) > 0 {
		agent := existing[0]
		r.logger.Ctx(ctx).Info("Reusing recipient counterparty",
			zap.String("counterparty_ref", agent.Ref),
		)
		return &agent, nil
	}

	items, err := r.carrier.SaveCounterparty(ctx, novaposhta.CounterpartySaveRequest{
		FirstName:            customer.FirstName,
		MiddleName:           customer.MiddleName,
		LastName:             customer.LastName,
		Phone:                customer.Phone,
		Email:                customer.Email,
		CounterpartyType:     novaposhta.CounterpartyPrivatePerson,
		CounterpartyProperty: novaposhta.PropertyRecipient,
	})
	if err != nil {
		return nil, carrierFailure(StateRecipientEnsured, CodeRecipientCreateFailed,
			"recipient counterparty was not created", err)
	}

	var match *novaposhta.Counterparty
	for i := range items {
		if items[i].FirstName == customer.FirstName && items[i].LastName == customer.LastName {
			match = &items[i]
			break
		}
	}
	if match == nil {
		return nil, NewProvisionError(CodeAmbiguousOrMissingRecipientMatch, StateRecipientEnsured,
			"carrier returned no counterparty named "+customer.FirstName+" "+customer.LastName)
	}

	agent := &CounterAgent{
		Ref:              match.Ref,
		FirstName:        match.FirstName,
		LastName:         match.LastName,
		MiddleName:       match.MiddleName,
		Phone:            customer.Phone,
		Email:            customer.Email,
		CounterpartyType: novaposhta.CounterpartyPrivatePerson,
		CityRef:          match.City,
	}
	for _, cp := range match.ContactPerson.Data {
		agent.ContactPersons = append(agent.ContactPersons, cp.Ref)
	}

	// The counterparty exists remotely now; a mirror failure only weakens the
	// duplicate guard for later runs.
	if err := r.mirror.Add(ctx, agent); err != nil {
		r.logger.Ctx(ctx).Warn("Failed to mirror recipient counterparty",
			zap.String("counterparty_ref", agent.Ref),
			zap.Error(err),
		)
	}

	r.logger.Ctx(ctx).Info("Created recipient counterparty",
		zap.String("counterparty_ref", agent.Ref),
	)
	return agent, nil
}

// ResolveAndBindAddress points the counterparty's first registered address at
// the destination warehouse's street and building. The bind is a remote
// mutation issued at most once per call; it is never retried here.
func (r *CounterpartyResolver) ResolveAndBindAddress(ctx context.Context, counterAgentRef string, destination *Warehouse) (*CounterAgentAddress, error) {
	const step = StateRecipientAddressBound

	addresses, err := r.carrier.GetCounterpartyAddresses(ctx, counterAgentRef, novaposhta.PropertyRecipient)
	if err != nil {
		return nil, carrierFailure(step, CodeRecipientAddressMissing, "recipient address lookup rejected", err)
	}
	if len(addresses) == 0 {
		return nil, NewProvisionError(CodeRecipientAddressMissing, step,
			"counterparty "+counterAgentRef+" has no registered address")
	}
	address := addresses[0]

	components, err := ExtractStreetAndBuilding(destination.ShortAddress)
	if err != nil {
		return nil, err
	}

	streets, err := r.carrier.GetStreet(ctx, novaposhta.StreetRequest{
		CityRef:      destination.CityRef,
		FindByString: components.StreetName,
	})
	if err != nil {
		return nil, carrierFailure(step, CodeStreetResolutionFailed, "street lookup rejected", err)
	}
	if len(streets) == 0 {
		return nil, NewProvisionError(CodeStreetResolutionFailed, step,
			"no street named "+components.StreetName)
	}

	updated, err := r.carrier.UpdateAddress(ctx, novaposhta.AddressUpdateRequest{
		Ref:             address.Ref,
		CounterpartyRef: counterAgentRef,
		StreetRef:       streets[0].Ref,
		BuildingNumber:  components.BuildingNumber,
	})
	if err != nil {
		return nil, carrierFailure(step, CodeAddressBindFailed, "address update rejected", err)
	}

	bound := &CounterAgentAddress{
		Ref:             address.Ref,
		CounterAgentRef: counterAgentRef,
		StreetRef:       streets[0].Ref,
		BuildingNumber:  components.BuildingNumber,
		Description:     address.Description,
	}
	if len(updated) > 0 && updated[0].Ref != "" {
		bound.Ref = updated[0].Ref
		bound.Description = updated[0].Description
	}

	r.logger.Ctx(ctx).Info("Bound recipient address",
		zap.String("counterparty_ref", counterAgentRef),
		zap.String("address_ref", bound.Ref),
		zap.String("street", components.StreetName),
		zap.String("building", components.BuildingNumber),
	)
	return bound, nil
}

// ResolveSender looks up the sender counterparty by ref among the account's
// senders, then its first contact person and first registered address.
// Any missing piece means the carrier account is misconfigured.
func (r *CounterpartyResolver) ResolveSender(ctx context.Context, senderRef string) (*Sender, error) {
	const step = StateSenderResolved

	senders, err := r.carrier.GetCounterparties(ctx, novaposhta.PropertySender)
	if err != nil {
		return nil, carrierFailure(step, CodeSenderConfigurationMissing, "sender lookup rejected", err)
	}

	var sender *novaposhta.Counterparty
	for i := range senders {
		if senders[i].Ref == senderRef {
			sender = &senders[i]
			break
		}
	}
	if sender == nil {
		return nil, NewProvisionError(CodeSenderConfigurationMissing, step,
			"sender "+senderRef+" is not registered with the carrier account")
	}

	contacts, err := r.carrier.GetCounterpartyContactPersons(ctx, senderRef)
	if err != nil {
		return nil, carrierFailure(step, CodeSenderConfigurationMissing, "sender contact lookup rejected", err)
	}
	if len(contacts) == 0 {
		return nil, NewProvisionError(CodeSenderConfigurationMissing, step,
			"sender "+senderRef+" has no contact person")
	}

	addresses, err := r.carrier.GetCounterpartyAddresses(ctx, senderRef, novaposhta.PropertySender)
	if err != nil {
		return nil, carrierFailure(step, CodeSenderConfigurationMissing, "sender address lookup rejected", err)
	}
	if len(addresses) == 0 {
		return nil, NewProvisionError(CodeSenderConfigurationMissing, step,
			"sender "+senderRef+" has no registered address")
	}

	contact := contacts[0]
	return &Sender{
		CounterAgent: CounterAgent{
			Ref:              sender.Ref,
			FirstName:        sender.FirstName,
			LastName:         sender.LastName,
			MiddleName:       sender.MiddleName,
			CounterpartyType: sender.CounterpartyType,
			CityRef:          sender.City,
			ContactPersons:   []string{contact.Ref},
		},
		ContactPerson: ContactPerson{
			Ref:       contact.Ref,
			FirstName: contact.FirstName,
			LastName:  contact.LastName,
			Phone:     contact.Phones,
		},
		Address: CounterAgentAddress{
			Ref:             addresses[0].Ref,
			CounterAgentRef: sender.Ref,
			StreetRef:       addresses[0].StreetRef,
			BuildingNumber:  addresses[0].BuildingNumber,
			Description:     addresses[0].Description,
		},
	}, nil
}
