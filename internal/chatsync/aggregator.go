package chatsync

import (
	"nocturne/internal/domain/entity"
	"nocturne/internal/domain/repository"
	"nocturne/pkg/logger"
)

// roomAggregator merges one room document and the other participant's
// profile into a single ConversationSummary. The two sources arrive on
// independent streams with no cross-stream ordering, so every event rebuilds
// the summary in full from the cached state rather than applying deltas.
type roomAggregator struct {
	tracker *membershipTracker
	roomID  string

	cancelRoom    repository.CancelFunc
	cancelProfile repository.CancelFunc

	// Loop-confined caches.
	room         *entity.ChatRoom
	otherUserID  string
	profile      *entity.User
	profileKnown bool
	stopped      bool
}

func newRoomAggregator(tracker *membershipTracker, roomID string) *roomAggregator {
	return &roomAggregator{
		tracker: tracker,
		roomID:  roomID,
	}
}

// start opens the room document watch. Runs on the tracker loop.
func (a *roomAggregator) start() {
	t := a.tracker
	a.cancelRoom = t.chatRepo.WatchRoom(t.ctx, a.roomID,
		func(room *entity.ChatRoom, exists bool) {
			t.post(func() { a.handleRoom(room, exists) })
		},
		a.onWatchError,
	)
}

func (a *roomAggregator) handleRoom(room *entity.ChatRoom, exists bool) {
	t := a.tracker
	if a.stopped || !t.active {
		return
	}

	if !exists {
		// Routine consistency condition, not a failure: the membership row
		// points at a room document that is gone. The aggregator stays
		// registered (so no duplicate is spawned) but goes quiet.
		t.orphans.Report(a.roomID)
		t.table.Delete(a.roomID)
		a.stop()
		return
	}

	a.room = room

	otherID, ok := room.OtherParticipant(t.selfID)
	if !ok {
		logger.Warn("Chat room %s has no counterpart for user %s", a.roomID, t.selfID)
		return
	}
	if otherID != a.otherUserID {
		if a.cancelProfile != nil {
			a.cancelProfile()
			a.cancelProfile = nil
		}
		a.otherUserID = otherID
		a.profile = nil
		a.profileKnown = false
		a.cancelProfile = t.userRepo.WatchProfile(t.ctx, otherID,
			func(user *entity.User, userExists bool) {
				t.post(func() { a.handleProfile(user, userExists) })
			},
			a.onWatchError,
		)
	}

	a.publish()
}

func (a *roomAggregator) handleProfile(user *entity.User, exists bool) {
	if a.stopped || !a.tracker.active {
		return
	}
	a.profileKnown = true
	if exists {
		a.profile = user
	} else {
		a.profile = nil
	}
	a.publish()
}

// publish upserts the summary once both sources have reported. Upsert by
// room ID keeps the table at one row per room no matter how many redundant
// events arrive.
func (a *roomAggregator) publish() {
	if a.room == nil || !a.profileKnown {
		return
	}

	var other entity.UserSnapshot
	if a.profile != nil {
		other = a.profile.Snapshot()
	} else {
		other = entity.DeletedUserSnapshot(a.otherUserID)
	}

	flags := ComputeReadFlags(a.room, a.tracker.selfID, a.otherUserID)

	summary := entity.ConversationSummary{
		ID:            a.roomID,
		OtherUser:     other,
		LastMessage:   a.room.LastMessage,
		HasReadByMe:   flags.HasReadByMe,
		HasReadByThem: flags.HasReadByThem,
	}
	if a.room.LastMessage != nil {
		summary.LastMessageTimestamp = a.room.LastMessage.Timestamp
	}

	a.tracker.table.Upsert(summary)
}

// stop cancels both watches. Idempotent; runs on the tracker loop.
func (a *roomAggregator) stop() {
	a.stopped = true
	if a.cancelRoom != nil {
		a.cancelRoom()
		a.cancelRoom = nil
	}
	if a.cancelProfile != nil {
		a.cancelProfile()
		a.cancelProfile = nil
	}
}

func (a *roomAggregator) onWatchError(err error) {
	logger.Error("Watch error for chat room %s: %v", a.roomID, err)
}
