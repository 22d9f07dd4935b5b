package repository

import (
	"context"

	"nocturne/internal/domain/entity"
)

// ChangeKind classifies one delta in a watched collection.
type ChangeKind int

const (
	ChangeAdded ChangeKind = iota
	ChangeModified
	ChangeRemoved
)

func (k ChangeKind) String() string {
	switch k {
	case ChangeAdded:
		return "added"
	case ChangeModified:
		return "modified"
	case ChangeRemoved:
		return "removed"
	default:
		return "unknown"
	}
}

// MembershipChange is one normalized event from the membership watch. The
// first snapshot delivers an Added change for every existing row.
type MembershipChange struct {
	Kind       ChangeKind
	ChatRoomID string
}

// CancelFunc stops a watch. Idempotent; calling it twice is a no-op.
type CancelFunc func()

// ChatRepository is the document-store boundary for chat rooms, memberships
// and messages. Watch callbacks are delivered in backend order per path; no
// ordering holds across different watches. Implementations must route
// listener failures to onError instead of panicking, and must not tear the
// listener down on transient errors (the client library reconnects itself).
type ChatRepository interface {
	// WatchMemberships streams the user's userChatRooms collection.
	WatchMemberships(ctx context.Context, userID string, onChange func(MembershipChange), onError func(error)) CancelFunc

	// WatchRoom streams a single room document. exists=false means the
	// document is missing, which is a defined state rather than an error.
	WatchRoom(ctx context.Context, roomID string, onChange func(room *entity.ChatRoom, exists bool), onError func(error)) CancelFunc

	GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error)

	// MarkRead adds userID to the room's readBy set with union semantics.
	MarkRead(ctx context.Context, roomID, userID string) error

	// CreateMessage appends to the room's messages subcollection and updates
	// the room document's lastMessage/lastUpdated/readBy in the same call.
	// readBy is overwritten to just the sender: a new message always means
	// the other side has unread content.
	CreateMessage(ctx context.Context, roomID string, message *entity.Message) error

	ListMessages(ctx context.Context, roomID string, limit, offset int) ([]*entity.Message, error)

	// DeleteMemberships removes the given membership rows for userID in one
	// atomic batch. Deleting an absent row succeeds.
	DeleteMemberships(ctx context.Context, userID string, roomIDs []string) error
}
