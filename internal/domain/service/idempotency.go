package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"
)

// IdempotencyCache deduplicates tool invocations across all sessions
// of this process. The key canonicalizes (idempotency key, tool name,
// arguments); the value is the serialized tool result, so repeat hits
// replay byte-equal results.
//
// Entries live for the process lifetime: no TTL, no eviction. The map
// grows with the number of distinct (key, name, args) triples seen.
type IdempotencyCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

// NewIdempotencyCache creates an empty cache.
func NewIdempotencyCache() *IdempotencyCache {
	return &IdempotencyCache{entries: make(map[string][]byte)}
}

// Key derives the canonical cache key. encoding/json sorts map keys,
// so structurally equal arguments always serialize identically.
func (c *IdempotencyCache) Key(idemKey, toolName string, args map[string]any) string {
	canonical, _ := json.Marshal(args)
	h := sha256.New()
	h.Write([]byte(idemKey))
	h.Write([]byte{0})
	h.Write([]byte(toolName))
	h.Write([]byte{0})
	h.Write(canonical)
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached serialized result for key.
func (c *IdempotencyCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores a serialized result under key.
func (c *IdempotencyCache) Put(key string, result []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
}

// Len returns the number of cached entries.
func (c *IdempotencyCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
