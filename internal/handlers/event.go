package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hotlinehq/relay-api/internal/hub"
	"github.com/hotlinehq/relay-api/internal/models"
	"github.com/hotlinehq/relay-api/internal/repository"
)

// SecretHeader carries the shared secret the public site sends with events.
const SecretHeader = "x-button-secret"

// Broadcaster pushes an event payload to every live subscriber.
// Fire-and-forget: no connected audience is never an error.
type Broadcaster interface {
	Broadcast(topic string, payload interface{})
}

type EventHandler struct {
	events      repository.EventRepository
	broadcaster Broadcaster
	secret      string
	logger      zerolog.Logger
}

type ingestRequest struct {
	Type string          `json:"type"`
	Who  string          `json:"who"`
	Meta json.RawMessage `json:"meta"`
}

func NewEventHandler(events repository.EventRepository, broadcaster Broadcaster, secret string, logger zerolog.Logger) *EventHandler {
	return &EventHandler{
		events:      events,
		broadcaster: broadcaster,
		secret:      secret,
		logger:      logger.With().Str("handler", "event").Logger(),
	}
}

func (h *EventHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(SecretHeader) != h.secret {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"ok": false, "error": "Unauthorized"})
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": "Invalid request body"})
		return
	}

	meta, err := parseMeta(req.Meta)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}

	eventType := strings.TrimSpace(req.Type)
	if eventType == "" {
		eventType = models.DefaultEventType
	}
	who := strings.TrimSpace(req.Who)
	if who == "" {
		who = models.DefaultEventWho
	}

	event, err := h.events.Create(r.Context(), repository.CreateEventParams{
		ID:   newEventID(),
		Type: eventType,
		Who:  who,
		Meta: meta,
	})

	// Persistence and broadcast are independent; the live audience is
	// notified even when the store is down. The payload deliberately
	// omits the generated id.
	h.broadcaster.Broadcast(hub.TopicSiteEvent, map[string]interface{}{
		"at":   time.Now().UTC().Format(time.RFC3339),
		"type": eventType,
		"who":  who,
		"meta": meta,
	})

	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to store event")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"ok": false, "error": "Failed to store event"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "data": event})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.List(r.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list events")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Failed to list events"})
		return
	}

	// An empty store is a valid state, not an error.
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": events})
}

// parseMeta accepts only a flat object with the known keys; anything else
// is rejected rather than propagated into notification bodies.
func parseMeta(raw json.RawMessage) (models.EventMeta, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return models.EventMeta{}, nil
	}

	var fields map[string]string
	if err := json.Unmarshal(raw, &fields); err != nil {
		return models.EventMeta{}, fmt.Errorf("meta must be an object of string values")
	}

	return models.EventMeta{
		Tel:  strings.TrimSpace(fields["tel"]),
		Page: strings.TrimSpace(fields["page"]),
	}, nil
}

// newEventID builds a timestamp-prefixed id with a random suffix so bursts
// of concurrent events never collide.
func newEventID() string {
	suffix := strings.SplitN(uuid.NewString(), "-", 2)[0]
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), suffix)
}
