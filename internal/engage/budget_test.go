package engage

import (
	"context"
	"testing"
	"time"

	"hypebot/internal/config"
	"hypebot/internal/store/sqlitestore"
)

func TestBudgetRespectsCaps(t *testing.T) {
	db, err := sqlitestore.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	b := &Budget{Log: db, Cfg: config.BudgetConfig{MaxPerHour: 2, MaxPerDay: 3}}

	ok, err := b.Allow(ctx, now)
	if err != nil || !ok {
		t.Fatalf("expected allowed, got %v %v", ok, err)
	}
	_ = b.Record(ctx, now)
	_ = b.Record(ctx, now.Add(5*time.Minute))
	if ok, _ := b.Allow(ctx, now.Add(10*time.Minute)); ok {
		t.Fatal("expected blocked by hourly budget")
	}
	_ = b.Record(ctx, now.Add(65*time.Minute))
	if ok, _ := b.Allow(ctx, now.Add(70*time.Minute)); ok {
		t.Fatal("expected blocked by daily budget")
	}
	if ok, _ := b.Allow(ctx, now.Add(24*time.Hour)); !ok {
		t.Fatal("expected allowed the next day")
	}
}

func TestNilBudgetAllows(t *testing.T) {
	var b *Budget
	if ok, err := b.Allow(context.Background(), time.Now()); err != nil || !ok {
		t.Fatalf("nil budget: %v %v", ok, err)
	}
	if err := b.Record(context.Background(), time.Now()); err != nil {
		t.Fatal(err)
	}
}
