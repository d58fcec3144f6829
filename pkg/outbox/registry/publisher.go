// Package registry maps outbox event types to their topic and payload schema
// so the relay can validate rows before publishing them.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/angelmondragon/jewelbid-backend/pkg/config"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is an outbox row that passed validation, with its payload
// decoded into the registered type.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// NonRetryableError marks rows that will never publish. The relay moves
// them straight to the dead-letter table.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func permanent(format string, args ...any) error {
	return NewNonRetryableError(fmt.Errorf(format, args...))
}

type schema struct {
	aggregate enums.OutboxAggregateType
	payload   func() any
}

func dealSchema() schema {
	return schema{enums.AggregateDeal, func() any { return &payloads.DealEvent{} }}
}

// schemas lists every event the marketplace emits.
var schemas = map[enums.OutboxEventType]schema{
	enums.EventBidPlaced:     {enums.AggregateItem, func() any { return &payloads.BidPlacedEvent{} }},
	enums.EventAuctionClosed: {enums.AggregateItem, func() any { return &payloads.AuctionClosedEvent{} }},
	enums.EventOfferAccepted: {enums.AggregateRequest, func() any { return &payloads.OfferAcceptedEvent{} }},
	enums.EventDealCreated:   dealSchema(),
	enums.EventDealCheckout:  dealSchema(),
	enums.EventDealPaid:      dealSchema(),
	enums.EventDealCompleted: dealSchema(),
	enums.EventDealCancelled: dealSchema(),
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NewEventRegistry routes every event to the domain topic. Subscribers
// filter on the event_type message attribute.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.DomainTopic == "" {
		return nil, errors.New("domain topic is required")
	}
	entries := make(map[enums.OutboxEventType]EventDescriptor, len(schemas))
	for eventType, s := range schemas {
		entries[eventType] = EventDescriptor{
			EventType:      eventType,
			AggregateType:  s.aggregate,
			Topic:          cfg.DomainTopic,
			PayloadFactory: s.payload,
		}
	}
	return &EventRegistry{entries: entries}, nil
}

// Resolve checks the row against its descriptor and decodes the payload.
// Every failure is non-retryable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, permanent("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, permanent("event %s belongs to %s aggregates, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, permanent("event %s has no aggregate id", event.EventType)
	}

	envelope, err := outbox.DecodeEnvelope(event.Payload)
	if err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("%s: %w", event.EventType, err))
	}
	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, permanent("decode %s payload: %v", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}
