package router

import (
	"github.com/labstack/echo/v4"

	"nocturne/internal/adapter/api/handler"
)

func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	// Authenticates inside the handler via the token query parameter.
	e.GET("/ws", wsHandler.HandleWebSocket)
}
