package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/scrimline/tournament-engine/live"
)

type WebSocketHandler struct {
	hub    *live.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Subscribe godoc
// @Summary Подписка на live-события турнира по WebSocket
// @Tags dashboard
// @Param tournamentID path int true "Tournament ID"
// @Success 101 "Switching Protocols"
// @Router /ws/tournaments/{tournamentID} [get]
func (h *WebSocketHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := getIDFromURL(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("не удалось обновить соединение до websocket", "error", err)
		return
	}

	h.hub.NewClient(conn, tournamentID)
}
