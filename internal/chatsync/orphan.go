package chatsync

import (
	"context"
	"sort"
	"sync"

	"nocturne/internal/domain/repository"
	"nocturne/pkg/logger"
)

// OrphanCollector accumulates chat rooms whose membership row still exists
// but whose backing room document is gone. The set is session-local and
// rebuilt from scratch each session.
type OrphanCollector struct {
	chatRepo repository.ChatRepository

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewOrphanCollector(chatRepo repository.ChatRepository) *OrphanCollector {
	return &OrphanCollector{
		chatRepo: chatRepo,
		pending:  make(map[string]struct{}),
	}
}

// Report marks a room as orphaned. Idempotent.
func (c *OrphanCollector) Report(roomID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.pending[roomID]; ok {
		return
	}
	c.pending[roomID] = struct{}{}
	logger.Debug("Orphaned chat room reported: %s", roomID)
}

// Pending returns the rooms currently awaiting cleanup, sorted.
func (c *OrphanCollector) Pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.pending))
	for id := range c.pending {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Cleanup deletes the stale membership rows for userID in one atomic batch
// and returns how many were removed. Only the rooms included in that exact
// batch are cleared on success; anything reported while the batch was in
// flight stays pending for the next call. A failed batch leaves the set
// untouched so cleanup can be retried.
func (c *OrphanCollector) Cleanup(ctx context.Context, userID string) (int, error) {
	c.mu.Lock()
	batch := make([]string, 0, len(c.pending))
	for id := range c.pending {
		batch = append(batch, id)
	}
	c.mu.Unlock()

	if len(batch) == 0 {
		return 0, nil
	}
	sort.Strings(batch)

	if err := c.chatRepo.DeleteMemberships(ctx, userID, batch); err != nil {
		logger.Warn("Orphan cleanup failed for user %s: %v", userID, err)
		return 0, err
	}

	c.mu.Lock()
	for _, id := range batch {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	logger.Info("Cleaned up %d stale chat room memberships for user %s", len(batch), userID)
	return len(batch), nil
}
