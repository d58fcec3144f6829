package enums

import "fmt"

// ItemStatus maps to the item_status enum in Postgres.
type ItemStatus string

const (
	ItemStatusDraft     ItemStatus = "DRAFT"
	ItemStatusPublished ItemStatus = "PUBLISHED"
	ItemStatusReserved  ItemStatus = "RESERVED"
	ItemStatusSold      ItemStatus = "SOLD"
	ItemStatusHidden    ItemStatus = "HIDDEN"
)

var validItemStatuses = []ItemStatus{
	ItemStatusDraft,
	ItemStatusPublished,
	ItemStatusReserved,
	ItemStatusSold,
	ItemStatusHidden,
}

func (s ItemStatus) IsValid() bool {
	for _, candidate := range validItemStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// Purchasable reports whether a direct-buy reservation may target the item.
func (s ItemStatus) Purchasable() bool {
	return s == ItemStatusPublished || s == ItemStatusReserved
}

func ParseItemStatus(value string) (ItemStatus, error) {
	for _, candidate := range validItemStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid item status %q", value)
}
