package chatsync

import (
	"context"
	"sync"

	"nocturne/internal/domain/entity"
	"nocturne/internal/domain/repository"
	"nocturne/pkg/errors"
)

// Engine is the per-session facade over the sync core: one membership
// tracker feeding one conversation table plus one orphan collector. The UI
// shell reads snapshots, subscribes for pushes and triggers orphan cleanup
// through it.
type Engine struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository

	table   *ConversationTable
	orphans *OrphanCollector

	mu      sync.Mutex
	tracker *membershipTracker
	userID  string
}

func NewEngine(chatRepo repository.ChatRepository, userRepo repository.UserRepository) *Engine {
	return &Engine{
		chatRepo: chatRepo,
		userRepo: userRepo,
		table:    NewConversationTable(),
		orphans:  NewOrphanCollector(chatRepo),
	}
}

// Start opens the membership watch for userID. The engine stays live until
// Stop is called or ctx is cancelled.
func (e *Engine) Start(ctx context.Context, userID string) error {
	if userID == "" {
		return errors.BadRequest("User ID is required", nil)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.tracker != nil {
		return errors.BadRequest("Sync session already started", nil)
	}

	e.userID = userID
	e.tracker = newMembershipTracker(ctx, userID, e.chatRepo, e.userRepo, e.table, e.orphans)
	e.tracker.start()
	return nil
}

// Stop cancels the membership watch and every room subscription before
// returning. Safe to call more than once.
func (e *Engine) Stop() {
	e.mu.Lock()
	tracker := e.tracker
	e.tracker = nil
	e.mu.Unlock()

	if tracker != nil {
		tracker.stop()
	}
}

// Conversations returns the current list, newest first.
func (e *Engine) Conversations() []entity.ConversationSummary {
	return e.table.Snapshot()
}

// Subscribe registers fn for a fresh snapshot after every table change.
func (e *Engine) Subscribe(fn func([]entity.ConversationSummary)) func() {
	return e.table.Subscribe(fn)
}

// OrphanedRooms lists the rooms currently awaiting cleanup.
func (e *Engine) OrphanedRooms() []string {
	return e.orphans.Pending()
}

// CleanupOrphans deletes the stale membership rows accumulated so far and
// returns how many were removed.
func (e *Engine) CleanupOrphans(ctx context.Context) (int, error) {
	e.mu.Lock()
	userID := e.userID
	e.mu.Unlock()

	if userID == "" {
		return 0, errors.BadRequest("Sync session has not been started", nil)
	}
	return e.orphans.Cleanup(ctx, userID)
}
