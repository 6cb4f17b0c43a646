package service

import (
	"bytes"
	"testing"
)

func TestIdempotencyKeyStable(t *testing.T) {
	c := NewIdempotencyCache()

	a := c.Key("k", "places.search", map[string]any{"query": "ramen", "limit": 5})
	b := c.Key("k", "places.search", map[string]any{"limit": 5, "query": "ramen"})
	if a != b {
		t.Fatal("structurally equal args must derive the same key")
	}
}

func TestIdempotencyKeyDiscriminates(t *testing.T) {
	c := NewIdempotencyCache()
	args := map[string]any{"query": "ramen"}

	base := c.Key("k", "places.search", args)
	if c.Key("other", "places.search", args) == base {
		t.Fatal("key must depend on the idempotency key")
	}
	if c.Key("k", "bookings.create", args) == base {
		t.Fatal("key must depend on the tool name")
	}
	if c.Key("k", "places.search", map[string]any{"query": "sushi"}) == base {
		t.Fatal("key must depend on the arguments")
	}
}

func TestIdempotencyCacheRoundtrip(t *testing.T) {
	c := NewIdempotencyCache()
	key := c.Key("k", "echo", map[string]any{"msg": "hi"})

	if _, ok := c.Get(key); ok {
		t.Fatal("empty cache must miss")
	}
	c.Put(key, []byte(`{"echo":"hi"}`))
	got, ok := c.Get(key)
	if !ok || !bytes.Equal(got, []byte(`{"echo":"hi"}`)) {
		t.Fatalf("Get = %s, %v", got, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("Len = %d", c.Len())
	}
}
