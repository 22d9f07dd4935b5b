package handler

import (
	"mime/multipart"
	"strings"

	"github.com/labstack/echo/v4"

	"nocturne/internal/usecase"
	"nocturne/pkg/response"
	"nocturne/pkg/utils"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type createChatRoomRequest struct {
	RecipientID string `json:"recipient_id" validate:"required"`
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

// GetConversations returns the live conversation list from the caller's sync
// session, newest first.
func (h *ChatHandler) GetConversations(c echo.Context) error {
	userID := c.Get("uid").(string)

	conversations, err := h.chatUseCase.Conversations(userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, conversations)
}

// CreateChatRoom creates (or returns) the one-to-one room with the recipient.
func (h *ChatHandler) CreateChatRoom(c echo.Context) error {
	var req createChatRoomRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	roomID, err := h.chatUseCase.CreateChatRoom(c.Request().Context(), userID, req.RecipientID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, map[string]string{"chat_room_id": roomID})
}

// SendMessage accepts JSON ({"content": ...}) or multipart form data with a
// "content" field and an optional "media" image file.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	userID := c.Get("uid").(string)
	roomID := c.Param("id")

	input := usecase.SendMessageInput{ChatRoomID: roomID}

	contentType := c.Request().Header.Get(echo.HeaderContentType)
	if strings.HasPrefix(contentType, echo.MIMEMultipartForm) {
		input.Content = c.FormValue("content")

		var file multipart.File
		fileHeader, err := c.FormFile("media")
		if err == nil {
			file, err = fileHeader.Open()
			if err != nil {
				return response.Error(c, err)
			}
			defer file.Close()
			input.Media = file
			input.MediaContentType = fileHeader.Header.Get("Content-Type")
		}
	} else {
		var req sendMessageRequest
		if err := c.Bind(&req); err != nil {
			return response.Error(c, err)
		}
		input.Content = req.Content
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// GetMessages returns a page of the room's message history.
func (h *ChatHandler) GetMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	roomID := c.Param("id")

	page := utils.GetPaginationParams(c, 50)

	messages, err := h.chatUseCase.GetMessages(c.Request().Context(), userID, roomID, page.Limit, page.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// MarkRead adds the caller to the room's readBy set.
func (h *ChatHandler) MarkRead(c echo.Context) error {
	userID := c.Get("uid").(string)
	roomID := c.Param("id")

	if err := h.chatUseCase.MarkRoomRead(c.Request().Context(), userID, roomID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}

// CleanupOrphans deletes membership rows pointing at rooms that no longer
// exist.
func (h *ChatHandler) CleanupOrphans(c echo.Context) error {
	userID := c.Get("uid").(string)

	removed, err := h.chatUseCase.CleanupOrphans(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"removed": removed})
}
