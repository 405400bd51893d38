package auth

import "context"

type contextKey int

const identityKey contextKey = iota

// WithIdentity returns a new context with the identity attached.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext retrieves the identity from the context, or nil.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// RequireRole checks that the context carries an unexpired identity
// with the given role. The error distinguishes an absent identity
// (ErrMissingCredentials) from an insufficient one (ErrForbidden).
func RequireRole(ctx context.Context, role string) error {
	id := IdentityFromContext(ctx)
	if id == nil {
		return ErrMissingCredentials
	}
	if id.IsExpired() {
		return ErrTokenExpired
	}
	if !id.HasRole(role) {
		return ErrForbidden
	}
	return nil
}
