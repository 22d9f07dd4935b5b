package entity

import "time"

// Message lives in chatRooms/{roomId}/messages. Immutable once written.
type Message struct {
	ID        string    `json:"id" firestore:"id"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	Content   string    `json:"content" firestore:"content"`
	MediaURL  string    `json:"media_url,omitempty" firestore:"mediaUrl,omitempty"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

func (m *Message) Summary() *MessageSummary {
	return &MessageSummary{
		SenderID:  m.SenderID,
		Content:   m.Content,
		MediaURL:  m.MediaURL,
		Timestamp: m.Timestamp,
	}
}
