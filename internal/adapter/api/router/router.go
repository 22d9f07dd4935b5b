package router

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"nocturne/internal/adapter/api/handler"
	"nocturne/internal/adapter/api/middleware"
)

func Setup(
	e *echo.Echo,
	authMiddleware *middleware.AuthMiddleware,
	chatHandler *handler.ChatHandler,
	userHandler *handler.UserHandler,
	wsHandler *handler.WebSocketHandler,
) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	SetupChatRouter(e, chatHandler, authMiddleware)
	SetupUserRouter(e, userHandler, authMiddleware)
	SetupWebSocketRouter(e, wsHandler)
}
