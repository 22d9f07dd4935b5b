package entity

import "time"

// ChatRoomMembership is one row in users/{uid}/userChatRooms. The document ID
// matches the chat room ID; the field is kept for backwards compatibility with
// rows written by the cloud-side createChatRoom function.
type ChatRoomMembership struct {
	ChatRoomID string `json:"chat_room_id" firestore:"chatRoomId"`
}

// MessageSummary is the denormalized copy of the latest message kept on the
// room document. It may transiently lag the messages subcollection.
type MessageSummary struct {
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	Content   string    `json:"content" firestore:"content"`
	MediaURL  string    `json:"media_url,omitempty" firestore:"mediaUrl,omitempty"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

type ChatRoom struct {
	ID           string          `json:"id" firestore:"id"`
	Participants []string        `json:"participants" firestore:"participants"`
	LastMessage  *MessageSummary `json:"last_message,omitempty" firestore:"lastMessage,omitempty"`
	LastUpdated  time.Time       `json:"last_updated" firestore:"lastUpdated"`
	ReadBy       []string        `json:"read_by" firestore:"readBy"`
}

// OtherParticipant returns the participant that is not selfID. One-to-one
// rooms have exactly two participants; anything else yields ok=false.
func (r *ChatRoom) OtherParticipant(selfID string) (string, bool) {
	for _, id := range r.Participants {
		if id != selfID {
			return id, true
		}
	}
	return "", false
}

func (r *ChatRoom) HasParticipant(userID string) bool {
	for _, id := range r.Participants {
		if id == userID {
			return true
		}
	}
	return false
}

func (r *ChatRoom) HasRead(userID string) bool {
	for _, id := range r.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}
