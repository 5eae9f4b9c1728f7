// Package api exposes the application over a local HTTP and WebSocket
// bridge for status bars and widgets.
package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/theakshaypant/meetbar/internal/api/handlers"
	"github.com/theakshaypant/meetbar/internal/api/middleware"
	"github.com/theakshaypant/meetbar/internal/app"
	"github.com/theakshaypant/meetbar/internal/websocket"
)

// NewRouter creates the bridge router with all routes configured.
func NewRouter(svc handlers.Service, hub *websocket.Hub, version string, log zerolog.Logger) *mux.Router {
	log = log.With().Str("component", "api").Logger()

	r := mux.NewRouter()
	r.Use(middleware.Logging(log))
	r.Use(middleware.ErrorRecovery(log))

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", handlers.HealthCheck(svc, hub, version)).Methods(http.MethodGet)

	api.HandleFunc("/permission", handlers.GetPermission(svc)).Methods(http.MethodGet)
	api.HandleFunc("/permission/request", handlers.RequestPermission(svc)).Methods(http.MethodPost)

	api.HandleFunc("/calendars", handlers.ListCalendars(svc)).Methods(http.MethodGet)
	api.HandleFunc("/calendars/{id}/toggle", handlers.ToggleCalendar(svc)).Methods(http.MethodPost)

	api.HandleFunc("/events", handlers.GetEvents(svc)).Methods(http.MethodGet)
	api.HandleFunc("/sync", handlers.Sync(svc)).Methods(http.MethodPost)

	api.HandleFunc("/settings", handlers.GetSettings(svc)).Methods(http.MethodGet)
	api.HandleFunc("/settings", handlers.UpdateSettings(svc)).Methods(http.MethodPut)

	api.HandleFunc("/ws", handlers.WebSocketUpgrade(hub, log))

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Route not found")
	})

	return r
}

// Forward returns a subscriber that relays application notifications to
// every connected WebSocket client.
func Forward(hub *websocket.Hub) func(app.Notification) {
	return func(n app.Notification) {
		hub.Publish(websocket.NewMessage(websocket.MessageType(n.Type), n.Payload))
	}
}
