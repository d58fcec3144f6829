package enums

import "fmt"

// UserRole maps to the user_role enum in Postgres.
type UserRole string

const (
	UserRoleBuyer          UserRole = "BUYER"
	UserRoleSeller         UserRole = "SELLER"
	UserRoleSellerVerified UserRole = "SELLER_VERIFIED"
	UserRoleAdmin          UserRole = "ADMIN"
)

var validUserRoles = []UserRole{
	UserRoleBuyer,
	UserRoleSeller,
	UserRoleSellerVerified,
	UserRoleAdmin,
}

func (r UserRole) IsValid() bool {
	for _, candidate := range validUserRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// CanSell reports whether the role may list items and submit offers.
func (r UserRole) CanSell() bool {
	return r == UserRoleSeller || r == UserRoleSellerVerified
}

func (r UserRole) IsAdmin() bool {
	return r == UserRoleAdmin
}

func ParseUserRole(value string) (UserRole, error) {
	for _, candidate := range validUserRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid user role %q", value)
}

// SellerStatus tracks the seller approval workflow.
type SellerStatus string

const (
	SellerStatusNone     SellerStatus = "NONE"
	SellerStatusPending  SellerStatus = "PENDING"
	SellerStatusApproved SellerStatus = "APPROVED"
	SellerStatusRejected SellerStatus = "REJECTED"
)

var validSellerStatuses = []SellerStatus{
	SellerStatusNone,
	SellerStatusPending,
	SellerStatusApproved,
	SellerStatusRejected,
}

func (s SellerStatus) IsValid() bool {
	for _, candidate := range validSellerStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}
