package enums

import "fmt"

// DealStatus maps to the deal_status enum in Postgres.
//
// Lifecycle: OPEN -> PENDING_PAYMENT -> PAID -> COMPLETE, with CANCELLED
// reachable from OPEN or PENDING_PAYMENT. No transition skips a state.
type DealStatus string

const (
	DealStatusOpen           DealStatus = "OPEN"
	DealStatusPendingPayment DealStatus = "PENDING_PAYMENT"
	DealStatusPaid           DealStatus = "PAID"
	DealStatusComplete       DealStatus = "COMPLETE"
	DealStatusCancelled      DealStatus = "CANCELLED"
)

var validDealStatuses = []DealStatus{
	DealStatusOpen,
	DealStatusPendingPayment,
	DealStatusPaid,
	DealStatusComplete,
	DealStatusCancelled,
}

var dealTransitions = map[DealStatus][]DealStatus{
	DealStatusOpen:           {DealStatusPendingPayment, DealStatusCancelled},
	DealStatusPendingPayment: {DealStatusPaid, DealStatusCancelled},
	DealStatusPaid:           {DealStatusComplete},
}

// ActiveDealStatuses are the statuses that hold a claim on an item.
var ActiveDealStatuses = []DealStatus{
	DealStatusOpen,
	DealStatusPendingPayment,
	DealStatusPaid,
}

func (s DealStatus) IsValid() bool {
	for _, candidate := range validDealStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s DealStatus) CanTransitionTo(next DealStatus) bool {
	for _, candidate := range dealTransitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// Active reports whether the deal still claims its item.
func (s DealStatus) Active() bool {
	return s != DealStatusComplete && s != DealStatusCancelled
}

// Settled reports whether payment has been captured.
func (s DealStatus) Settled() bool {
	return s == DealStatusPaid || s == DealStatusComplete
}

func ParseDealStatus(value string) (DealStatus, error) {
	for _, candidate := range validDealStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deal status %q", value)
}
