package handlers

import (
	"net/http"

	"github.com/theakshaypant/meetbar/internal/api/middleware"
	"github.com/theakshaypant/meetbar/internal/websocket"
)

// HealthResponse represents the health check response.
type HealthResponse struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Permission string `json:"permission"`
	Clients    int    `json:"clients"`
}

// HealthCheck returns a handler for the health check endpoint.
func HealthCheck(svc Service, hub *websocket.Hub, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, HealthResponse{
			Status:     "ok",
			Version:    version,
			Permission: string(svc.Permission()),
			Clients:    hub.ClientCount(),
		})
	}
}
