package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type column of outbox_events.
type OutboxAggregateType string

const (
	AggregateItem    OutboxAggregateType = "item"
	AggregateDeal    OutboxAggregateType = "deal"
	AggregateRequest OutboxAggregateType = "request"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateItem,
	AggregateDeal,
	AggregateRequest,
}

// IsValid reports whether the value matches a known aggregate.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// OutboxEventType maps to the event_type column of outbox_events.
type OutboxEventType string

const (
	EventBidPlaced     OutboxEventType = "bid_placed"
	EventAuctionClosed OutboxEventType = "auction_closed"
	EventDealCreated   OutboxEventType = "deal_created"
	EventOfferAccepted OutboxEventType = "offer_accepted"
	EventDealCheckout  OutboxEventType = "deal_checked_out"
	EventDealPaid      OutboxEventType = "deal_paid"
	EventDealCompleted OutboxEventType = "deal_completed"
	EventDealCancelled OutboxEventType = "deal_cancelled"
)

var validEventTypes = []OutboxEventType{
	EventBidPlaced,
	EventAuctionClosed,
	EventDealCreated,
	EventOfferAccepted,
	EventDealCheckout,
	EventDealPaid,
	EventDealCompleted,
	EventDealCancelled,
}

// IsValid reports whether the event type is registered.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxDLQErrorReason records why an event was parked in the DLQ.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
)
