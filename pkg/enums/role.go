package enums

import (
	"fmt"
	"strings"
)

// Role is the storefront-wide account role. The gateway is authoritative; a client copy is advisory.
type Role string

const (
	RoleRegular Role = "Regular"
	RoleAdmin   Role = "Admin"
)

var validRoles = []Role{
	RoleRegular,
	RoleAdmin,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the role claims administrative access.
func (r Role) IsAdmin() bool {
	return r == RoleAdmin
}

// ParseRole converts raw input into a Role. Matching is case-insensitive since
// the gateway has emitted both "admin" and "Admin".
func ParseRole(value string) (Role, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validRoles {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}
