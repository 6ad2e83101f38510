package users

import (
	"github.com/google/uuid"
)

// Role is the marketplace role carried in access tokens.
type Role string

const (
	RoleCustomer Role = "CUSTOMER"
	RoleGuide    Role = "GUIDE"
	RoleAdmin    Role = "ADMIN"
)

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleCustomer, RoleGuide, RoleAdmin:
		return true
	default:
		return false
	}
}

// Actor identifies who is issuing a command.
type Actor struct {
	ID   uuid.UUID `json:"id"`
	Role Role      `json:"role"`
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
