package chatsync

import (
	"sort"
	"sync"

	"nocturne/internal/domain/entity"
)

// ConversationTable is the shared in-memory view of the user's conversation
// list. Each room aggregator owns exactly one key and never writes another,
// so writes for different rooms can never conflict; the mutex only guards the
// map itself. The UI layer reads snapshots and subscribes for changes.
type ConversationTable struct {
	mu          sync.RWMutex
	entries     map[string]entity.ConversationSummary
	subscribers map[int]func([]entity.ConversationSummary)
	nextSubID   int
}

func NewConversationTable() *ConversationTable {
	return &ConversationTable{
		entries:     make(map[string]entity.ConversationSummary),
		subscribers: make(map[int]func([]entity.ConversationSummary)),
	}
}

func (t *ConversationTable) Get(roomID string) (entity.ConversationSummary, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	entry, ok := t.entries[roomID]
	return entry, ok
}

// Upsert replaces the entry for the summary's room. Redundant upserts with
// the same payload are harmless; the table never grows a second row for an
// existing key.
func (t *ConversationTable) Upsert(summary entity.ConversationSummary) {
	t.mu.Lock()
	t.entries[summary.ID] = summary
	t.mu.Unlock()
	t.notify()
}

func (t *ConversationTable) Delete(roomID string) {
	t.mu.Lock()
	_, existed := t.entries[roomID]
	delete(t.entries, roomID)
	t.mu.Unlock()
	if existed {
		t.notify()
	}
}

func (t *ConversationTable) Clear() {
	t.mu.Lock()
	cleared := len(t.entries) > 0
	t.entries = make(map[string]entity.ConversationSummary)
	t.mu.Unlock()
	if cleared {
		t.notify()
	}
}

func (t *ConversationTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Snapshot returns the conversations ordered newest-first by last message
// time, ties broken by room ID for a stable list.
func (t *ConversationTable) Snapshot() []entity.ConversationSummary {
	t.mu.RLock()
	out := make([]entity.ConversationSummary, 0, len(t.entries))
	for _, entry := range t.entries {
		out = append(out, entry)
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].LastMessageTimestamp.Equal(out[j].LastMessageTimestamp) {
			return out[i].LastMessageTimestamp.After(out[j].LastMessageTimestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Subscribe registers fn to receive a fresh snapshot after every mutation.
// The returned function removes the subscription and is idempotent.
func (t *ConversationTable) Subscribe(fn func([]entity.ConversationSummary)) func() {
	t.mu.Lock()
	id := t.nextSubID
	t.nextSubID++
	t.subscribers[id] = fn
	t.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subscribers, id)
			t.mu.Unlock()
		})
	}
}

func (t *ConversationTable) notify() {
	t.mu.RLock()
	fns := make([]func([]entity.ConversationSummary), 0, len(t.subscribers))
	for _, fn := range t.subscribers {
		fns = append(fns, fn)
	}
	t.mu.RUnlock()

	if len(fns) == 0 {
		return
	}
	snapshot := t.Snapshot()
	for _, fn := range fns {
		fn(snapshot)
	}
}
