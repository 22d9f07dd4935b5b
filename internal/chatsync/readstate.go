package chatsync

import "nocturne/internal/domain/entity"

// ReadFlags is the derived read state of a conversation for one viewer.
type ReadFlags struct {
	HasReadByMe   bool
	HasReadByThem bool
}

// ComputeReadFlags derives read flags from the room's readBy set. Pure.
func ComputeReadFlags(room *entity.ChatRoom, selfID, otherID string) ReadFlags {
	return ReadFlags{
		HasReadByMe:   room.HasRead(selfID),
		HasReadByThem: room.HasRead(otherID),
	}
}
