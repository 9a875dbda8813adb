package bot

import (
	"context"
	"sync"
)

// Tracker remembers which mentions were handled and the newest
// notification timestamp seen. *sqlitestore.DB satisfies it.
type Tracker interface {
	IsProcessed(ctx context.Context, uri string) (bool, error)
	MarkProcessed(ctx context.Context, uri string) error
	LastSeen(ctx context.Context) (string, error)
	UpdateLastSeen(ctx context.Context, ts string) error
}

// MemoryTracker keeps processed mention URIs for the life of the process.
type MemoryTracker struct {
	mu        sync.Mutex
	processed map[string]struct{}
	lastSeen  string
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{processed: make(map[string]struct{})}
}

func (t *MemoryTracker) IsProcessed(_ context.Context, uri string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.processed[uri]
	return ok, nil
}

func (t *MemoryTracker) MarkProcessed(_ context.Context, uri string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.processed[uri] = struct{}{}
	return nil
}

func (t *MemoryTracker) LastSeen(context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastSeen, nil
}

func (t *MemoryTracker) UpdateLastSeen(_ context.Context, ts string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSeen = ts
	return nil
}

// Len reports how many mentions have been processed.
func (t *MemoryTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.processed)
}
