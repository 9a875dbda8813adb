package sqlitestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestProcessedMentions(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	if ok, err := db.IsProcessed(ctx, "at://some/uri"); err != nil || ok {
		t.Fatalf("fresh uri processed=%v err=%v", ok, err)
	}
	if err := db.MarkProcessed(ctx, "at://some/uri"); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkProcessed(ctx, "at://some/uri"); err != nil {
		t.Fatalf("second mark should be a no-op: %v", err)
	}
	if ok, _ := db.IsProcessed(ctx, "at://some/uri"); !ok {
		t.Fatal("expected processed")
	}
	if ok, _ := db.IsProcessed(ctx, "at://other/uri"); ok {
		t.Fatal("different uri should not be processed")
	}
}

func TestProcessedMentionsSurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hypebot.db")
	ctx := context.Background()
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	_ = db.MarkProcessed(ctx, "at://persisted")
	_ = db.UpdateLastSeen(ctx, "2025-01-15T12:00:00.000Z")
	_ = db.Close()

	db, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if ok, _ := db.IsProcessed(ctx, "at://persisted"); !ok {
		t.Fatal("expected mention to persist")
	}
	if v, err := db.LastSeen(ctx); err != nil || v != "2025-01-15T12:00:00.000Z" {
		t.Fatalf("last seen %q err=%v", v, err)
	}
}

func TestCursorsAndActions(t *testing.T) {
	db, err := Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()
	if v, err := db.LastSeen(ctx); err != nil || v != "" {
		t.Fatalf("empty last seen %q err=%v", v, err)
	}
	if err := db.SaveCursor(ctx, "k", "1"); err != nil {
		t.Fatal(err)
	}
	_ = db.SaveCursor(ctx, "k", "2")
	if v, err := db.LoadCursor(ctx, "k"); err != nil || v != "2" {
		t.Fatalf("cursor %q err=%v", v, err)
	}
	now := time.Now().UTC()
	if err := db.PutAction(ctx, now, "reply"); err != nil {
		t.Fatal(err)
	}
	n, err := db.CountActionsWithin(ctx, now.Add(-time.Hour), now.Add(time.Hour), "reply")
	if err != nil || n != 1 {
		t.Fatalf("action count %d err=%v", n, err)
	}
	if n, _ := db.CountActionsWithin(ctx, now.Add(-time.Hour), now.Add(time.Hour), "other"); n != 0 {
		t.Fatalf("other type count %d", n)
	}
}
