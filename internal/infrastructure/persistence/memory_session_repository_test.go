package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/framegate/framegate/internal/domain/entity"
	apperrors "github.com/framegate/framegate/pkg/errors"
)

func record(id string, degraded bool, age time.Duration) *entity.SessionRecord {
	return &entity.SessionRecord{
		ID:        id,
		Prompt:    "p",
		Model:     "m",
		Degraded:  degraded,
		CreatedAt: time.Now().Add(-age),
	}
}

func TestMemoryRepositorySaveAndFind(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	if err := repo.Save(ctx, record("s1", false, 0)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.ID != "s1" || got.Model != "m" {
		t.Fatalf("record = %+v", got)
	}
}

func TestMemoryRepositoryFindMissing(t *testing.T) {
	repo := NewMemorySessionRepository()
	_, err := repo.FindByID(context.Background(), "nope")
	if err == nil {
		t.Fatal("expected an error")
	}
	if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		t.Fatalf("code = %s", apperrors.CodeOf(err))
	}
}

func TestMemoryRepositoryListNewestFirst(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if err := repo.Save(ctx, record(fmt.Sprintf("s%d", i), false, time.Duration(i)*time.Minute)); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	records, err := repo.List(ctx, 3, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3", len(records))
	}
	if records[0].ID != "s0" {
		t.Fatalf("newest = %s, want s0", records[0].ID)
	}

	rest, err := repo.List(ctx, 3, 3)
	if err != nil {
		t.Fatalf("List offset: %v", err)
	}
	if len(rest) != 2 {
		t.Fatalf("rest = %d, want 2", len(rest))
	}
}

func TestMemoryRepositoryCountDegraded(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()
	repo.Save(ctx, record("a", true, 0))
	repo.Save(ctx, record("b", false, 0))
	repo.Save(ctx, record("c", true, 0))

	count, err := repo.CountDegraded(ctx)
	if err != nil {
		t.Fatalf("CountDegraded: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}
