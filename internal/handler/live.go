package handler

import (
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/todo-app/internal/live"
	"github.com/iliyamo/todo-app/internal/middleware"
)

// LiveHandler upgrades authenticated requests to the todo event stream.
type LiveHandler struct {
	Hub      *live.Hub
	Upgrader websocket.Upgrader
}

func NewLiveHandler(hub *live.Hub, allowedOrigin string) *LiveHandler {
	return &LiveHandler{Hub: hub, Upgrader: live.Upgrader(allowedOrigin)}
}

func (h *LiveHandler) Stream(c echo.Context) error {
	// On failure the upgrader has already written the HTTP error.
	_ = h.Hub.ServeWS(&h.Upgrader, c.Response(), c.Request(), middleware.UserID(c))
	return nil
}
