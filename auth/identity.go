package auth

import "time"

// Method indicates how authentication was performed.
type Method string

const (
	MethodNone   Method = "none"
	MethodAPIKey Method = "api_key"
	MethodJWT    Method = "jwt"
)

// RoleOperator grants access to maintenance operations: cache sweeps,
// cache statistics, and progress resets.
const RoleOperator = "operator"

// Identity is an authenticated principal.
type Identity struct {
	// Principal is the unique identifier (key ID or token subject).
	Principal string

	// Roles granted to this principal.
	Roles []string

	// Method indicates how authentication was performed.
	Method Method

	// Claims holds the raw token claims, when the method carries any.
	Claims map[string]any

	// ExpiresAt is when this identity expires (zero = never).
	ExpiresAt time.Time
}

// HasRole reports whether the identity carries a role.
func (id *Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsExpired reports whether the identity has expired.
func (id *Identity) IsExpired() bool {
	if id.ExpiresAt.IsZero() {
		return false
	}
	return time.Now().After(id.ExpiresAt)
}
