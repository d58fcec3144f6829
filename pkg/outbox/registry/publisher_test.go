package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/jewelbid-backend/pkg/config"
	"github.com/angelmondragon/jewelbid-backend/pkg/db/models"
	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox"
	"github.com/angelmondragon/jewelbid-backend/pkg/outbox/payloads"
)

const testTopic = "jb-domain-events"

func newRegistry(t *testing.T) *EventRegistry {
	t.Helper()
	reg, err := NewEventRegistry(config.PubSubConfig{DomainTopic: testTopic})
	require.NoError(t, err)
	return reg
}

func envelopeOf(t *testing.T, data string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    "01JBX3V5Q0ZC4N8T2K7W9H6R1M",
		OccurredAt: time.Now().UTC(),
		Data:       json.RawMessage(data),
	})
	require.NoError(t, err)
	return raw
}

func TestResolveDecodesDealPayload(t *testing.T) {
	dealID := uuid.New()
	data, err := json.Marshal(payloads.DealEvent{
		DealID:     dealID,
		TotalPrice: decimal.NewFromInt(500),
		Currency:   enums.CurrencyUSD,
		Status:     enums.DealStatusPendingPayment,
	})
	require.NoError(t, err)

	resolved, err := newRegistry(t).Resolve(models.OutboxEvent{
		EventType:     enums.EventDealCreated,
		AggregateType: enums.AggregateDeal,
		AggregateID:   dealID,
		Payload:       envelopeOf(t, string(data)),
	})
	require.NoError(t, err)

	assert.Equal(t, testTopic, resolved.Descriptor.Topic)
	assert.NotEmpty(t, resolved.Envelope.EventID)
	payload, ok := resolved.Payload.(*payloads.DealEvent)
	require.True(t, ok, "payload type %T", resolved.Payload)
	assert.Equal(t, dealID, payload.DealID)
	assert.True(t, payload.TotalPrice.Equal(decimal.NewFromInt(500)))
}

func TestResolveRejectsBadRowsPermanently(t *testing.T) {
	reg := newRegistry(t)
	cases := map[string]models.OutboxEvent{
		"unknown type": {
			EventType:     enums.OutboxEventType("item_teleported"),
			AggregateType: enums.AggregateItem,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, `{"reason":"none"}`),
		},
		"aggregate mismatch": {
			EventType:     enums.EventBidPlaced,
			AggregateType: enums.AggregateDeal,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, `{}`),
		},
		"missing aggregate id": {
			EventType:     enums.EventBidPlaced,
			AggregateType: enums.AggregateItem,
			Payload:       envelopeOf(t, `{}`),
		},
		"null data": {
			EventType:     enums.EventAuctionClosed,
			AggregateType: enums.AggregateItem,
			AggregateID:   uuid.New(),
			Payload:       envelopeOf(t, `null`),
		},
		"garbage envelope": {
			EventType:     enums.EventAuctionClosed,
			AggregateType: enums.AggregateItem,
			AggregateID:   uuid.New(),
			Payload:       json.RawMessage(`"oops"`),
		},
	}
	for name, event := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := reg.Resolve(event)
			var nonRetry NonRetryableError
			assert.True(t, errors.As(err, &nonRetry), "got %v", err)
		})
	}
}

func TestEveryEmittedEventIsRegistered(t *testing.T) {
	reg := newRegistry(t)
	for _, eventType := range []enums.OutboxEventType{
		enums.EventBidPlaced, enums.EventAuctionClosed, enums.EventOfferAccepted,
		enums.EventDealCreated, enums.EventDealCheckout, enums.EventDealPaid,
		enums.EventDealCompleted, enums.EventDealCancelled,
	} {
		_, ok := reg.entries[eventType]
		assert.True(t, ok, "%s not registered", eventType)
	}
}

func TestNewEventRegistryRequiresTopic(t *testing.T) {
	_, err := NewEventRegistry(config.PubSubConfig{})
	assert.Error(t, err)
}
