package usecase

import (
	"context"
	"io"
	"strings"

	"nocturne/internal/chatsync"
	"nocturne/internal/domain/entity"
	"nocturne/internal/domain/repository"
	"nocturne/pkg/errors"
	"nocturne/pkg/logger"
)

// MediaUploader stores message and profile media and returns a download URL.
type MediaUploader interface {
	UploadChatImage(ctx context.Context, roomID string, file io.Reader, contentType string) (string, error)
	UploadProfileImage(ctx context.Context, userID string, file io.Reader, contentType string) (string, error)
}

// RoomCreator is the remote procedure that creates a one-to-one room
// server-side and writes both membership rows.
type RoomCreator interface {
	CreateChatRoom(ctx context.Context, currentUserID, otherUserID string) (string, error)
}

type ChatUseCase struct {
	chatRepo    repository.ChatRepository
	userRepo    repository.UserRepository
	sessions    *chatsync.SessionManager
	uploader    MediaUploader
	roomCreator RoomCreator
}

func NewChatUseCase(
	chatRepo repository.ChatRepository,
	userRepo repository.UserRepository,
	sessions *chatsync.SessionManager,
	uploader MediaUploader,
	roomCreator RoomCreator,
) *ChatUseCase {
	return &ChatUseCase{
		chatRepo:    chatRepo,
		userRepo:    userRepo,
		sessions:    sessions,
		uploader:    uploader,
		roomCreator: roomCreator,
	}
}

type SendMessageInput struct {
	ChatRoomID       string
	Content          string
	Media            io.Reader
	MediaContentType string
}

// SendMessage validates, uploads media if attached, then writes the message
// and the room's lastMessage/readBy in one batch. Upload failure aborts the
// send before any room mutation, so a dangling media reference can never be
// written.
func (uc *ChatUseCase) SendMessage(ctx context.Context, userID string, input SendMessageInput) (*entity.Message, error) {
	if input.ChatRoomID == "" {
		return nil, errors.BadRequest("Invalid chat room ID", nil)
	}

	content := strings.TrimSpace(input.Content)
	if content == "" && input.Media == nil {
		return nil, errors.BadRequest("Message content cannot be empty", nil)
	}

	room, err := uc.chatRepo.GetRoom(ctx, input.ChatRoomID)
	if err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return nil, errors.NotFound("Chat room", err)
		}
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this chat room", nil)
	}

	var mediaURL string
	if input.Media != nil {
		mediaURL, err = uc.uploader.UploadChatImage(ctx, input.ChatRoomID, input.Media, input.MediaContentType)
		if err != nil {
			logger.Error("Media upload failed for room %s: %v", input.ChatRoomID, err)
			return nil, errors.Internal("Failed to upload media", err)
		}
	}

	message := &entity.Message{
		SenderID: userID,
		Content:  content,
		MediaURL: mediaURL,
	}
	if err := uc.chatRepo.CreateMessage(ctx, input.ChatRoomID, message); err != nil {
		return nil, err
	}

	return message, nil
}

// MarkRoomRead adds the user to the room's readBy set. Union semantics: the
// other participant's flag is never clobbered, and repeating the call is a
// no-op. The conversation table picks the change up from the room watch.
func (uc *ChatUseCase) MarkRoomRead(ctx context.Context, userID, roomID string) error {
	if roomID == "" {
		return errors.BadRequest("Invalid chat room ID", nil)
	}
	return uc.chatRepo.MarkRead(ctx, roomID, userID)
}

// Conversations returns the live list for the user's active sync session.
func (uc *ChatUseCase) Conversations(userID string) ([]entity.ConversationSummary, error) {
	engine, ok := uc.sessions.Get(userID)
	if !ok {
		return nil, errors.BadRequest("No active sync session; connect to /ws first", nil)
	}
	return engine.Conversations(), nil
}

// CleanupOrphans removes membership rows whose room documents are gone.
func (uc *ChatUseCase) CleanupOrphans(ctx context.Context, userID string) (int, error) {
	engine, ok := uc.sessions.Get(userID)
	if !ok {
		return 0, errors.BadRequest("No active sync session; connect to /ws first", nil)
	}
	return engine.CleanupOrphans(ctx)
}

// CreateChatRoom validates locally, then delegates to the server-side
// createChatRoom function which authorizes and writes both membership rows.
func (uc *ChatUseCase) CreateChatRoom(ctx context.Context, userID, otherUserID string) (string, error) {
	if otherUserID == "" {
		return "", errors.BadRequest("Recipient ID is required", nil)
	}
	if otherUserID == userID {
		return "", errors.BadRequest("You cannot create a chat with yourself", nil)
	}

	if _, err := uc.userRepo.GetByID(ctx, otherUserID); err != nil {
		if errors.Is(err, "NOT_FOUND") {
			return "", errors.NotFound("Recipient", err)
		}
		return "", err
	}

	roomID, err := uc.roomCreator.CreateChatRoom(ctx, userID, otherUserID)
	if err != nil {
		logger.Error("Failed to create chat room for user %s: %v", userID, err)
		return "", err
	}
	return roomID, nil
}

// GetMessages returns a page of the room's message history, newest first.
func (uc *ChatUseCase) GetMessages(ctx context.Context, userID, roomID string, limit, offset int) ([]*entity.Message, error) {
	if roomID == "" {
		return nil, errors.BadRequest("Invalid chat room ID", nil)
	}

	room, err := uc.chatRepo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}
	if !room.HasParticipant(userID) {
		return nil, errors.Forbidden("You are not a participant of this chat room", nil)
	}

	return uc.chatRepo.ListMessages(ctx, roomID, limit, offset)
}
