package tool

import (
	"context"
	"testing"
	"time"

	"github.com/framegate/framegate/internal/domain/tool"
)

func TestRegisterBuiltins(t *testing.T) {
	registry := tool.NewInMemoryRegistry()
	if err := RegisterBuiltins(registry); err != nil {
		t.Fatalf("RegisterBuiltins: %v", err)
	}
	for _, name := range []string{"places.search", "bookings.create", "test.retry", "test.slow"} {
		if !registry.Has(name) {
			t.Fatalf("missing builtin %s", name)
		}
	}
}

func TestPlacesSearchMatchesByTag(t *testing.T) {
	res, err := (&PlacesSearchTool{}).Execute(context.Background(), map[string]any{"query": "ramen"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	places := res["places"].([]map[string]any)
	if len(places) == 0 {
		t.Fatal("no places returned")
	}
	if places[0]["name"] != "Menya Hakata" {
		t.Fatalf("top hit = %v", places[0])
	}
}

func TestPlacesSearchRequiresQuery(t *testing.T) {
	if _, err := (&PlacesSearchTool{}).Execute(context.Background(), map[string]any{}); err == nil {
		t.Fatal("expected an error for a missing query")
	}
}

func TestPlacesSearchHonorsLimit(t *testing.T) {
	res, err := (&PlacesSearchTool{}).Execute(context.Background(), map[string]any{
		"query": "dinner",
		"limit": float64(2),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if n := len(res["places"].([]map[string]any)); n != 2 {
		t.Fatalf("places = %d, want 2", n)
	}
}

func TestBookingsCreate(t *testing.T) {
	res, err := (&BookingsCreateTool{}).Execute(context.Background(), map[string]any{
		"place_id":   "p-001",
		"time":       "19:00",
		"party_size": float64(4),
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res["status"] != "confirmed" || res["place"] != "Menya Hakata" {
		t.Fatalf("result = %v", res)
	}
	if res["booking_id"] == "" {
		t.Fatal("missing booking id")
	}
}

func TestBookingsCreateRejectsClosedPlace(t *testing.T) {
	if _, err := (&BookingsCreateTool{}).Execute(context.Background(), map[string]any{"place_id": "p-003"}); err == nil {
		t.Fatal("expected an error for a closed place")
	}
}

func TestRetryToolFailsFirstAttempt(t *testing.T) {
	rt := &RetryTool{}
	if _, err := rt.Execute(tool.WithAttempt(context.Background(), 1), nil); err == nil {
		t.Fatal("attempt 1 must fail")
	}
	res, err := rt.Execute(tool.WithAttempt(context.Background(), 2), nil)
	if err != nil {
		t.Fatalf("attempt 2: %v", err)
	}
	if res["attempt"] != 2 {
		t.Fatalf("attempt = %v", res["attempt"])
	}
}

func TestSlowToolHonorsContext(t *testing.T) {
	st := &SlowTool{Delay: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := st.Execute(ctx, nil); err == nil {
		t.Fatal("expected a deadline error")
	}
}
