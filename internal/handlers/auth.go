package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"
)

const sessionTTL = 24 * time.Hour

// AuthHandler exchanges the shared admin secret for a short-lived bearer
// token, and gates the credential and subscription endpoints on it.
type AuthHandler struct {
	buttonSecret string
	jwtSecret    string
	logger       zerolog.Logger
}

type sessionRequest struct {
	Secret string `json:"secret"`
}

func NewAuthHandler(buttonSecret, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		buttonSecret: buttonSecret,
		jwtSecret:    jwtSecret,
		logger:       logger.With().Str("handler", "auth").Logger(),
	}
}

func (h *AuthHandler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Invalid request body"})
		return
	}

	if req.Secret == "" || req.Secret != h.buttonSecret {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "error": "Unauthorized"})
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": time.Now().Add(sessionTTL).Unix(),
	})
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to sign session token")
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false, "error": "Failed to create session"})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "token": tokenString})
}

// RequireSession accepts the bearer token in the Authorization header or,
// for WebSocket upgrades, in the token query parameter.
func (h *AuthHandler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "error": "Authorization required"})
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"success": false, "error": "Invalid session token"})
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
