package entity

import "time"

// ConversationSummary is the locally derived list-view entry for one chat
// room. It is rebuilt in full from the room document and the other
// participant's profile whenever either source changes.
type ConversationSummary struct {
	ID                   string          `json:"id"`
	OtherUser            UserSnapshot    `json:"other_user"`
	LastMessage          *MessageSummary `json:"last_message,omitempty"`
	LastMessageTimestamp time.Time       `json:"last_message_timestamp"`
	HasReadByMe          bool            `json:"has_read_by_me"`
	HasReadByThem        bool            `json:"has_read_by_them"`
}
