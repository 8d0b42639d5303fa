package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hotlinehq/relay-api/internal/handlers"
)

// NewRouter sets up the API routes
func NewRouter(
	auth *handlers.AuthHandler,
	event *handlers.EventHandler,
	token *handlers.TokenHandler,
	notify *handlers.NotifyHandler,
	subscribe *handlers.SubscribeHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Admin session
	router.HandleFunc("/api/admin/session", auth.CreateSession).Methods(http.MethodPost)

	// Site events: ingress is guarded by the shared secret header inside
	// the handler; listing is open to the dashboard.
	router.HandleFunc("/api/event", event.Ingest).Methods(http.MethodPost)
	router.HandleFunc("/api/events", event.List).Methods(http.MethodGet)

	// Push credentials, behind an admin session
	router.Handle("/save-token", auth.RequireSession(http.HandlerFunc(token.Save))).Methods(http.MethodPost)
	router.Handle("/get-token", auth.RequireSession(http.HandlerFunc(token.Get))).Methods(http.MethodGet)

	// Notification triggers
	router.HandleFunc("/send-call-notification", notify.TriggerCall).Methods(http.MethodPost)
	router.HandleFunc("/send-call-notification-ios", notify.TriggerCallIOS).Methods(http.MethodPost)

	// Live event subscription, behind an admin session (?token=)
	router.Handle("/ws", auth.RequireSession(http.HandlerFunc(subscribe.Subscribe))).Methods(http.MethodGet)

	return router
}
