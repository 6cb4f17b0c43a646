// Package tool provides the built-in tool implementations: the demo
// booking pair the happy path exercises plus the fault-injection tools
// behind the test modes.
package tool

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/framegate/framegate/internal/domain/tool"
)

// RegisterBuiltins installs every built-in tool into registry.
func RegisterBuiltins(registry tool.Registry) error {
	builtins := []tool.Tool{
		&PlacesSearchTool{},
		&BookingsCreateTool{},
		&RetryTool{},
		&SlowTool{Delay: 30 * time.Second},
	}
	for _, t := range builtins {
		if err := registry.Register(t); err != nil {
			return fmt.Errorf("register builtin %s: %w", t.Name(), err)
		}
	}
	return nil
}

// place is one catalog entry of the demo dataset.
type place struct {
	ID   string
	Name string
	Tags []string
	Open bool
}

// catalog is the static demo dataset; deterministic lookups keep
// replayed sessions byte-identical.
var catalog = []place{
	{ID: "p-001", Name: "Menya Hakata", Tags: []string{"ramen", "noodles", "dinner"}, Open: true},
	{ID: "p-002", Name: "Trattoria Lucca", Tags: []string{"italian", "pasta", "dinner"}, Open: true},
	{ID: "p-003", Name: "Cafe Aurora", Tags: []string{"coffee", "breakfast"}, Open: false},
	{ID: "p-004", Name: "Sakura Sushi", Tags: []string{"sushi", "japanese", "dinner"}, Open: true},
	{ID: "p-005", Name: "The Green Fork", Tags: []string{"vegan", "lunch"}, Open: false},
}

// PlacesSearchTool searches the demo catalog by keyword.
type PlacesSearchTool struct{}

var _ tool.Tool = (*PlacesSearchTool)(nil)

func (t *PlacesSearchTool) Name() string        { return "places.search" }
func (t *PlacesSearchTool) Description() string { return "Search venues by keyword" }

func (t *PlacesSearchTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("places.search: query is required")
	}

	limit := 5
	if l, ok := args["limit"].(float64); ok && l >= 1 {
		limit = int(l)
	}

	terms := strings.Fields(strings.ToLower(query))
	type scored struct {
		place place
		score int
	}
	var hits []scored
	for _, p := range catalog {
		s := matchScore(p, terms)
		if s > 0 {
			hits = append(hits, scored{place: p, score: s})
		}
	}
	// No keyword overlap at all still returns the catalog head so the
	// conversation can proceed.
	if len(hits) == 0 {
		for _, p := range catalog {
			hits = append(hits, scored{place: p})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	if len(hits) > limit {
		hits = hits[:limit]
	}
	places := make([]map[string]any, 0, len(hits))
	for _, h := range hits {
		places = append(places, map[string]any{
			"id":   h.place.ID,
			"name": h.place.Name,
			"tags": h.place.Tags,
			"open": h.place.Open,
		})
	}
	return map[string]any{"places": places}, nil
}

func matchScore(p place, terms []string) int {
	name := strings.ToLower(p.Name)
	score := 0
	for _, term := range terms {
		if strings.Contains(name, term) {
			score += 2
		}
		for _, tag := range p.Tags {
			if tag == term {
				score++
			}
		}
	}
	return score
}

// BookingsCreateTool books a place from the catalog.
type BookingsCreateTool struct{}

var _ tool.Tool = (*BookingsCreateTool)(nil)

func (t *BookingsCreateTool) Name() string        { return "bookings.create" }
func (t *BookingsCreateTool) Description() string { return "Create a booking for a venue" }

func (t *BookingsCreateTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	placeID, _ := args["place_id"].(string)
	if placeID == "" {
		return nil, fmt.Errorf("bookings.create: place_id is required")
	}

	var target *place
	for i := range catalog {
		if catalog[i].ID == placeID {
			target = &catalog[i]
			break
		}
	}
	if target == nil {
		return nil, fmt.Errorf("bookings.create: unknown place %s", placeID)
	}
	if !target.Open {
		return nil, fmt.Errorf("bookings.create: %s is closed", target.Name)
	}

	partySize := 2
	if n, ok := args["party_size"].(float64); ok && n >= 1 {
		partySize = int(n)
	}
	at, _ := args["time"].(string)

	return map[string]any{
		"booking_id": uuid.NewString(),
		"place":      target.Name,
		"time":       at,
		"party_size": partySize,
		"status":     "confirmed",
	}, nil
}

// RetryTool fails its first attempt and succeeds afterwards, reporting
// the attempt number that finally worked.
type RetryTool struct{}

var _ tool.Tool = (*RetryTool)(nil)

func (t *RetryTool) Name() string        { return "test.retry" }
func (t *RetryTool) Description() string { return "Fails once, then succeeds" }

func (t *RetryTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	attempt := tool.Attempt(ctx)
	if attempt <= 1 {
		return nil, fmt.Errorf("test.retry: injected failure on attempt %d", attempt)
	}
	return map[string]any{"attempt": attempt}, nil
}

// SlowTool sleeps past any reasonable per-attempt deadline.
type SlowTool struct {
	Delay time.Duration
}

var _ tool.Tool = (*SlowTool)(nil)

func (t *SlowTool) Name() string        { return "test.slow" }
func (t *SlowTool) Description() string { return "Sleeps until the attempt deadline expires" }

func (t *SlowTool) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	select {
	case <-time.After(t.Delay):
		return map[string]any{"slept": t.Delay.String()}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
