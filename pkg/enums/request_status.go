package enums

import "fmt"

// RequestStatus maps to the request_status enum in Postgres.
type RequestStatus string

const (
	RequestStatusOpen          RequestStatus = "OPEN"
	RequestStatusOfferAccepted RequestStatus = "OFFER_ACCEPTED"
	RequestStatusClosed        RequestStatus = "CLOSED"
	RequestStatusCancelled     RequestStatus = "CANCELLED"
)

var validRequestStatuses = []RequestStatus{
	RequestStatusOpen,
	RequestStatusOfferAccepted,
	RequestStatusClosed,
	RequestStatusCancelled,
}

func (s RequestStatus) IsValid() bool {
	for _, candidate := range validRequestStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Resolved reports whether the request can no longer accept an offer.
func (s RequestStatus) Resolved() bool {
	switch s {
	case RequestStatusOfferAccepted, RequestStatusClosed, RequestStatusCancelled:
		return true
	default:
		return false
	}
}

func ParseRequestStatus(value string) (RequestStatus, error) {
	for _, candidate := range validRequestStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid request status %q", value)
}
