package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/hotlinehq/relay-api/internal/models"
	"github.com/hotlinehq/relay-api/internal/repository"
)

type TokenHandler struct {
	creds     repository.CredentialRepository
	recipient string
	logger    zerolog.Logger
}

type saveTokenRequest struct {
	FCMToken string `json:"fcmToken"`
	APNToken string `json:"apnToken"`
}

func NewTokenHandler(creds repository.CredentialRepository, recipient string, logger zerolog.Logger) *TokenHandler {
	return &TokenHandler{
		creds:     creds,
		recipient: recipient,
		logger:    logger.With().Str("handler", "token").Logger(),
	}
}

// Save upserts the operator's push tokens. Fields omitted from the request
// preserve the previously stored value.
func (h *TokenHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Invalid request body"})
		return
	}

	cred, err := h.creds.Upsert(r.Context(), repository.UpsertCredentialParams{
		RecipientID: h.recipient,
		FCMToken:    strings.TrimSpace(req.FCMToken),
		APNToken:    strings.TrimSpace(req.APNToken),
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to save push token")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Failed to save token"})
		return
	}

	h.logger.Info().Str("recipient", cred.RecipientID).Msg("Push token saved")
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "token": cred})
}

func (h *TokenHandler) Get(w http.ResponseWriter, r *http.Request) {
	credentials, err := h.creds.Find(r.Context(), h.recipient)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// No registration yet is a valid state, not an error.
			writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": []models.PushCredential{}})
			return
		}
		h.logger.Error().Err(err).Msg("Failed to load push tokens")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Failed to load tokens"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "data": credentials})
}
