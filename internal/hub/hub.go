package hub

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

// TopicSiteEvent is the topic dashboard clients subscribe to.
const TopicSiteEvent = "site:event"

type envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// Hub tracks the connected dashboard clients and pushes event messages to
// all of them. Publishing never blocks the caller: each client owns a
// buffered send queue, and clients that cannot keep up are dropped.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	logger     zerolog.Logger
}

func New(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
		done:       make(chan struct{}),
		logger:     logger.With().Str("component", "hub").Logger(),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			h.logger.Info().Str("client_id", client.ID).Int("total", len(h.clients)).Msg("Admin connected")

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				h.logger.Info().Str("client_id", client.ID).Msg("Admin disconnected")
			}

		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					h.logger.Warn().Str("client_id", client.ID).Msg("Dropping slow client, send buffer full")
					delete(h.clients, client)
					close(client.send)
				}
			}

		case <-h.done:
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			return
		}
	}
}

// Broadcast queues a message for every connected client. Fire-and-forget:
// an unreachable or absent audience is never an error.
func (h *Hub) Broadcast(topic string, payload interface{}) {
	data, err := json.Marshal(envelope{Event: topic, Payload: payload})
	if err != nil {
		h.logger.Error().Err(err).Str("topic", topic).Msg("Failed to marshal broadcast payload")
		return
	}

	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn().Str("topic", topic).Msg("Broadcast queue full, message dropped")
	}
}

func (h *Hub) Close() {
	close(h.done)
}
