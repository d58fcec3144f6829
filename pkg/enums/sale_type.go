package enums

import "fmt"

// SaleType maps to the sale_type enum in Postgres.
type SaleType string

const (
	SaleTypeAuction SaleType = "AUCTION"
	SaleTypeDirect  SaleType = "DIRECT"
)

var validSaleTypes = []SaleType{SaleTypeAuction, SaleTypeDirect}

// IsValid reports whether the sale type is recognized.
func (s SaleType) IsValid() bool {
	for _, candidate := range validSaleTypes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleType converts a raw string into a SaleType.
func ParseSaleType(value string) (SaleType, error) {
	for _, candidate := range validSaleTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale type %q", value)
}
