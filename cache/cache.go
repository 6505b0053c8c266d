package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

var (
	ErrInvalidKey = errors.New("cache: key is invalid")
	ErrKeyTooLong = errors.New("cache: key exceeds max length")
)

// Cache stores raw response bodies for table reads.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get never errors; it returns (nil, false) on miss.
type Cache interface {
	// Get retrieves a cached body. Returns (nil, false) on miss.
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set stores a body with the given TTL. TTL<=0 stores nothing.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes an entry. Idempotent, no error on miss.
	Delete(ctx context.Context, key string) error
}

// ReadKey builds a deterministic key for one read request. The query is
// hashed in its encoded form, which is already sorted by parameter name.
// Format: read:<path>:<hash16>
func ReadKey(path string, query url.Values) string {
	hash := sha256.Sum256([]byte(query.Encode()))
	return "read:" + path + ":" + hex.EncodeToString(hash[:8])
}

// ValidateKey checks if a key is usable for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	return nil
}
