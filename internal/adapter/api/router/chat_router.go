package router

import (
	"github.com/labstack/echo/v4"

	"nocturne/internal/adapter/api/handler"
	"nocturne/internal/adapter/api/middleware"
)

// SetupChatRouter wires the conversation endpoints. Everything requires a
// verified Firebase ID token.
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.GET("", chatHandler.GetConversations)         // live list from the sync session
	conversations.POST("", chatHandler.CreateChatRoom)          // create one-to-one room
	conversations.POST("/cleanup", chatHandler.CleanupOrphans)  // delete stale membership rows
	conversations.PUT("/:id/read", chatHandler.MarkRead)        // mark room read
	conversations.POST("/:id/messages", chatHandler.SendMessage)
	conversations.GET("/:id/messages", chatHandler.GetMessages)
}
