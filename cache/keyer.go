package cache

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Keyer derives deterministic cache identities from request parameters.
//
// Contract:
//   - Determinism: same category and set-equal parameters must produce the
//     same identity, regardless of map iteration or insertion order.
//   - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives a cache identity from a category and a parameter
	// structure.
	Key(category string, params any) (string, error)
}

// DefaultKeyer derives SHA-256 based identities.
//
// Parameters are first round-tripped through JSON so that numeric values
// collapse to a single representation (3 and 3.0 hash identically) and
// struct inputs canonicalize the same as equivalent maps. The normalized
// value is then serialized with recursively sorted object keys and hashed.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives a deterministic identity.
// Format: <category>:<hash>
// where hash is the first 16 bytes of SHA-256(canonical JSON(params)),
// hex encoded. The category prefix keeps identities traceable to their
// class without being invertible.
func (k *DefaultKeyer) Key(category string, params any) (string, error) {
	if category == "" {
		return "", fmt.Errorf("cache: category is required")
	}

	norm, err := normalize(params)
	if err != nil {
		return "", fmt.Errorf("cache: failed to normalize parameters: %w", err)
	}

	canonical, err := canonicalize(norm)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize parameters: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return category + ":" + hex.EncodeToString(sum[:16]), nil
}

// normalize round-trips v through JSON so every number becomes a float64
// and every composite value becomes a map[string]any or []any. This makes
// the identity independent of the caller's concrete Go types.
func normalize(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return stripNumbers(out), nil
}

// stripNumbers converts json.Number values to a canonical textual form.
// Integral values lose any trailing ".0" so 3 and 3.0 agree.
func stripNumbers(v any) any {
	switch val := v.(type) {
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i
		}
		f, err := val.Float64()
		if err != nil {
			return val.String()
		}
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case map[string]any:
		for k, elem := range val {
			val[k] = stripNumbers(elem)
		}
		return val
	case []any:
		for i, elem := range val {
			val[i] = stripNumbers(elem)
		}
		return val
	default:
		return v
	}
}

// canonicalize produces a deterministic JSON serialization of a
// normalized value. Object keys are sorted; array order is preserved.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeObject(val)
	case []any:
		return canonicalizeArray(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeObject(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func canonicalizeArray(s []any) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		buf.Write(valBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
