package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hotlinehq/relay-api/internal/push"
)

const maxTelLength = 32

type NotifyHandler struct {
	service push.Service
	logger  zerolog.Logger
}

type triggerRequest struct {
	Tel           string `json:"tel"`
	TopicOverride string `json:"topicOverride"`
}

func NewNotifyHandler(service push.Service, logger zerolog.Logger) *NotifyHandler {
	return &NotifyHandler{
		service: service,
		logger:  logger.With().Str("handler", "notify").Logger(),
	}
}

func (h *NotifyHandler) TriggerCall(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTrigger(w, r)
	if !ok {
		return
	}

	summary, err := h.service.TriggerCall(r.Context(), req.Tel)
	if err != nil {
		h.writeTriggerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"successCount": summary.SuccessCount,
		"failureCount": summary.FailureCount,
		"results":      summary.Results,
	})
}

func (h *NotifyHandler) TriggerCallIOS(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTrigger(w, r)
	if !ok {
		return
	}

	summary, err := h.service.TriggerCallIOS(r.Context(), req.Tel, req.TopicOverride)
	if err != nil {
		h.writeTriggerError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"statusCode": http.StatusOK,
		"data":       summary,
	})
}

func (h *NotifyHandler) decodeTrigger(w http.ResponseWriter, r *http.Request) (triggerRequest, bool) {
	var req triggerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Invalid request body"})
		return req, false
	}

	req.Tel = strings.TrimSpace(req.Tel)
	if req.Tel == "" || len(req.Tel) > maxTelLength {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "tel is required and must be at most 32 characters"})
		return req, false
	}
	return req, true
}

func (h *NotifyHandler) writeTriggerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, push.ErrNoToken):
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false, "error": "No push token registered"})
	case errors.Is(err, push.ErrMissingTopic):
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Missing bundle topic configuration"})
	default:
		h.logger.Error().Err(err).Msg("Failed to trigger notification")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Failed to trigger notification"})
	}
}
