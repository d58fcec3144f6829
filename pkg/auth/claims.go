package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/jewelbid-backend/pkg/enums"
)

// Identity is the authenticated caller handed to services. It is passed
// explicitly; services never read it from ambient state.
type Identity struct {
	UserID uuid.UUID
	Role   enums.UserRole
}

func (i Identity) IsAdmin() bool { return i.Role.IsAdmin() }

func (i Identity) CanSell() bool { return i.Role.CanSell() }

// Is reports whether the identity belongs to userID.
func (i Identity) Is(userID uuid.UUID) bool {
	return i.UserID != uuid.Nil && i.UserID == userID
}

// AccessTokenClaims is the JWT body issued at login.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

func (c AccessTokenClaims) Identity() Identity {
	return Identity{UserID: c.UserID, Role: c.Role}
}
