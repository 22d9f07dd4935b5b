package repository

import (
	"context"
	"sync"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"nocturne/internal/domain/entity"
	"nocturne/internal/domain/repository"
	"nocturne/pkg/errors"
	"nocturne/pkg/logger"
)

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) membershipsRef(userID string) *firestore.CollectionRef {
	return r.client.Collection("users").Doc(userID).Collection("userChatRooms")
}

func (r *firestoreChatRepository) roomRef(roomID string) *firestore.DocumentRef {
	return r.client.Collection("chatRooms").Doc(roomID)
}

func (r *firestoreChatRepository) WatchMemberships(ctx context.Context, userID string, onChange func(repository.MembershipChange), onError func(error)) repository.CancelFunc {
	watchCtx, cancel := context.WithCancel(ctx)
	iter := r.membershipsRef(userID).Snapshots(watchCtx)

	go func() {
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				dispatchError(onError, err)
				return
			}
			for _, change := range snap.Changes {
				dispatch(onError, func() {
					onChange(repository.MembershipChange{
						Kind:       changeKind(change.Kind),
						ChatRoomID: change.Doc.Ref.ID,
					})
				})
			}
		}
	}()

	return cancelOnce(cancel)
}

func (r *firestoreChatRepository) WatchRoom(ctx context.Context, roomID string, onChange func(room *entity.ChatRoom, exists bool), onError func(error)) repository.CancelFunc {
	watchCtx, cancel := context.WithCancel(ctx)
	iter := r.roomRef(roomID).Snapshots(watchCtx)

	go func() {
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if status.Code(err) == codes.Canceled {
					return
				}
				dispatchError(onError, err)
				return
			}
			if !snap.Exists() {
				dispatch(onError, func() { onChange(nil, false) })
				continue
			}

			var room entity.ChatRoom
			if err := snap.DataTo(&room); err != nil {
				logger.Warn("Skipping malformed room document %s: %v", roomID, err)
				continue
			}
			room.ID = snap.Ref.ID
			dispatch(onError, func() { onChange(&room, true) })
		}
	}()

	return cancelOnce(cancel)
}

func (r *firestoreChatRepository) GetRoom(ctx context.Context, roomID string) (*entity.ChatRoom, error) {
	doc, err := r.roomRef(roomID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat room", err)
		}
		return nil, errors.Internal("Failed to get chat room", err)
	}

	var room entity.ChatRoom
	if err := doc.DataTo(&room); err != nil {
		return nil, errors.Internal("Failed to parse chat room data", err)
	}
	room.ID = doc.Ref.ID

	return &room, nil
}

func (r *firestoreChatRepository) MarkRead(ctx context.Context, roomID, userID string) error {
	_, err := r.roomRef(roomID).Update(ctx, []firestore.Update{
		{Path: "readBy", Value: firestore.ArrayUnion(userID)},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return errors.NotFound("Chat room", err)
		}
		return errors.Internal("Failed to mark chat room as read", err)
	}

	return nil
}

func (r *firestoreChatRepository) CreateMessage(ctx context.Context, roomID string, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}

	msgData := map[string]interface{}{
		"id":        message.ID,
		"senderId":  message.SenderID,
		"content":   message.Content,
		"timestamp": firestore.ServerTimestamp,
	}
	lastMessage := map[string]interface{}{
		"senderId":  message.SenderID,
		"content":   message.Content,
		"timestamp": firestore.ServerTimestamp,
	}
	if message.MediaURL != "" {
		msgData["mediaUrl"] = message.MediaURL
		lastMessage["mediaUrl"] = message.MediaURL
	}

	roomRef := r.roomRef(roomID)
	batch := r.client.Batch()
	batch.Set(roomRef.Collection("messages").Doc(message.ID), msgData)
	// readBy is intentionally overwritten rather than unioned: a new message
	// always marks the recipient unread.
	batch.Update(roomRef, []firestore.Update{
		{Path: "lastMessage", Value: lastMessage},
		{Path: "lastUpdated", Value: firestore.ServerTimestamp},
		{Path: "readBy", Value: []string{message.SenderID}},
	})

	if _, err := batch.Commit(ctx); err != nil {
		return errors.Internal("Failed to send message", err)
	}

	return nil
}

func (r *firestoreChatRepository) ListMessages(ctx context.Context, roomID string, limit, offset int) ([]*entity.Message, error) {
	query := r.roomRef(roomID).Collection("messages").OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	docs := query.Documents(ctx)
	var messages []*entity.Message
	for {
		doc, err := docs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.Internal("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message %s in room %s: %v", doc.Ref.ID, roomID, err)
			continue
		}
		message.ID = doc.Ref.ID
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreChatRepository) DeleteMemberships(ctx context.Context, userID string, roomIDs []string) error {
	if len(roomIDs) == 0 {
		return nil
	}

	batch := r.client.Batch()
	for _, roomID := range roomIDs {
		batch.Delete(r.membershipsRef(userID).Doc(roomID))
	}

	if _, err := batch.Commit(ctx); err != nil {
		return errors.Internal("Failed to delete stale chat room memberships", err)
	}

	return nil
}

func changeKind(kind firestore.DocumentChangeKind) repository.ChangeKind {
	switch kind {
	case firestore.DocumentAdded:
		return repository.ChangeAdded
	case firestore.DocumentRemoved:
		return repository.ChangeRemoved
	default:
		return repository.ChangeModified
	}
}

// dispatch runs a change callback, converting a panic into an onError report
// so a misbehaving consumer can never kill the snapshot pump.
func dispatch(onError func(error), fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			dispatchError(onError, errors.Internal("panic in watch callback", nil))
			logger.Error("Recovered panic in watch callback: %v", rec)
		}
	}()
	fn()
}

func dispatchError(onError func(error), err error) {
	if onError != nil {
		onError(err)
		return
	}
	logger.Error("Unhandled watch error: %v", err)
}

func cancelOnce(cancel context.CancelFunc) repository.CancelFunc {
	var once sync.Once
	return func() {
		once.Do(cancel)
	}
}
