package enums

import (
	"fmt"
	"strings"
)

// ActorRole is the role carried in access tokens.
type ActorRole string

const (
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleVendor   ActorRole = "vendor"
	ActorRoleAdmin    ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	ActorRoleCustomer,
	ActorRoleVendor,
	ActorRoleAdmin,
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// SenderType maps chat-capable roles onto a conversation side.
func (r ActorRole) SenderType() (SenderType, bool) {
	switch r {
	case ActorRoleCustomer:
		return SenderCustomer, true
	case ActorRoleVendor:
		return SenderVendor, true
	}
	return "", false
}

// ParseActorRole converts raw input into an ActorRole, ignoring case.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if strings.EqualFold(string(candidate), strings.TrimSpace(value)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
