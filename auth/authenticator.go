package auth

import "context"

// Request carries the credentials of one incoming call.
type Request struct {
	// Headers contains HTTP headers (Authorization, X-API-Key, ...).
	Headers map[string][]string
}

// GetHeader returns the first value for a header, or empty string.
func (r *Request) GetHeader(key string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	values := r.Headers[key]
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// Authenticator validates credentials and returns an identity.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: Authenticate returns (nil, err) with a sentinel from this
//     package for a rejected credential; internal faults wrap their cause.
type Authenticator interface {
	// Name returns a unique identifier for this authenticator.
	Name() string

	// Supports reports whether the request carries a credential this
	// authenticator understands.
	Supports(ctx context.Context, req *Request) bool

	// Authenticate validates the credential and returns the identity.
	Authenticate(ctx context.Context, req *Request) (*Identity, error)
}

// Chain tries authenticators in order and uses the first one that
// supports the request. A request no authenticator supports is
// rejected with ErrMissingCredentials.
type Chain struct {
	authenticators []Authenticator
}

var _ Authenticator = (*Chain)(nil)

// NewChain creates a chain over the given authenticators; nil entries
// are skipped.
func NewChain(authenticators ...Authenticator) *Chain {
	c := &Chain{}
	for _, a := range authenticators {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

// Name returns "chain".
func (c *Chain) Name() string {
	return "chain"
}

// Supports reports whether any chained authenticator supports the request.
func (c *Chain) Supports(ctx context.Context, req *Request) bool {
	for _, a := range c.authenticators {
		if a.Supports(ctx, req) {
			return true
		}
	}
	return false
}

// Authenticate delegates to the first supporting authenticator.
func (c *Chain) Authenticate(ctx context.Context, req *Request) (*Identity, error) {
	for _, a := range c.authenticators {
		if a.Supports(ctx, req) {
			return a.Authenticate(ctx, req)
		}
	}
	return nil, ErrMissingCredentials
}
