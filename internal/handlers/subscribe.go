package handlers

import (
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hotlinehq/relay-api/internal/hub"
)

// SubscribeHandler upgrades dashboard connections and hands them to the hub.
type SubscribeHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

func NewSubscribeHandler(h *hub.Hub, logger zerolog.Logger) *SubscribeHandler {
	return &SubscribeHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The public site embeds the dashboard from any origin, same
			// as the wide-open CORS policy.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger.With().Str("handler", "subscribe").Logger(),
	}
}

func (h *SubscribeHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	client := hub.NewClient(h.hub, conn)
	client.Serve()
}
