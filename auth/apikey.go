package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"
)

// APIKeyConfig configures the API key authenticator.
type APIKeyConfig struct {
	// HeaderName is the header containing the API key.
	// Default: "X-API-Key"
	HeaderName string
}

// KeyInfo describes one registered API key. Keys are stored hashed;
// the plaintext never persists past registration.
type KeyInfo struct {
	// Principal is the identity associated with this key.
	Principal string

	// Roles granted to this key.
	Roles []string

	// ExpiresAt is when this key expires (zero = never).
	ExpiresAt time.Time
}

// Keychain holds registered API keys, keyed by SHA-256 hash.
type Keychain struct {
	mu   sync.RWMutex
	keys map[string]KeyInfo
}

// NewKeychain creates an empty keychain.
func NewKeychain() *Keychain {
	return &Keychain{keys: make(map[string]KeyInfo)}
}

// NewOperatorKeychain registers each plaintext key with the operator
// role, using its position as the principal. This is the shape the
// MLSITE_API_KEYS environment list produces.
func NewOperatorKeychain(keys []string) *Keychain {
	kc := NewKeychain()
	for i, key := range keys {
		if strings.TrimSpace(key) == "" {
			continue
		}
		kc.Add(key, KeyInfo{
			Principal: fmt.Sprintf("api-key-%d", i+1),
			Roles:     []string{RoleOperator},
		})
	}
	return kc
}

// Add registers a plaintext key.
func (k *Keychain) Add(key string, info KeyInfo) {
	k.mu.Lock()
	k.keys[HashAPIKey(key)] = info
	k.mu.Unlock()
}

// Remove unregisters a plaintext key.
func (k *Keychain) Remove(key string) {
	k.mu.Lock()
	delete(k.keys, HashAPIKey(key))
	k.mu.Unlock()
}

// lookup retrieves key info by hash.
func (k *Keychain) lookup(hash string) (KeyInfo, bool) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	info, ok := k.keys[hash]
	return info, ok
}

// HashAPIKey hashes an API key with SHA-256 for storage.
func HashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}

// APIKeyAuthenticator validates API keys against a keychain.
type APIKeyAuthenticator struct {
	config APIKeyConfig
	keys   *Keychain
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)

// NewAPIKeyAuthenticator creates an API key authenticator.
func NewAPIKeyAuthenticator(config APIKeyConfig, keys *Keychain) *APIKeyAuthenticator {
	if config.HeaderName == "" {
		config.HeaderName = "X-API-Key"
	}
	if keys == nil {
		keys = NewKeychain()
	}
	return &APIKeyAuthenticator{config: config, keys: keys}
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return "api_key"
}

// Supports reports whether the request carries an API key header.
func (a *APIKeyAuthenticator) Supports(_ context.Context, req *Request) bool {
	return req.GetHeader(a.config.HeaderName) != ""
}

// Authenticate validates the API key.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, req *Request) (*Identity, error) {
	key := strings.TrimSpace(req.GetHeader(a.config.HeaderName))
	if key == "" {
		return nil, ErrMissingCredentials
	}

	info, ok := a.keys.lookup(HashAPIKey(key))
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !info.ExpiresAt.IsZero() && time.Now().After(info.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return &Identity{
		Principal: info.Principal,
		Roles:     info.Roles,
		Method:    MethodAPIKey,
		ExpiresAt: info.ExpiresAt,
	}, nil
}
