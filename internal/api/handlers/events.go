package handlers

import (
	"net/http"

	"github.com/theakshaypant/meetbar/internal/api/middleware"
	"github.com/theakshaypant/meetbar/internal/present"
	"github.com/theakshaypant/meetbar/internal/tray"
)

// EventsResponse is the popover model plus the tray label.
type EventsResponse struct {
	View    present.View `json:"view"`
	Tray    tray.Label   `json:"tray"`
	Loading bool         `json:"loading"`
}

func GetEvents(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, eventsResponse(svc))
	}
}

// Sync runs a forced sync. Provider failures answer 502.
func Sync(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ForceSync(r.Context()); err != nil {
			middleware.WriteError(w, http.StatusBadGateway, middleware.ErrSyncFailed, err.Error())
			return
		}
		middleware.WriteJSON(w, eventsResponse(svc))
	}
}

func eventsResponse(svc Service) EventsResponse {
	view := svc.View()
	if view.Groups == nil {
		view.Groups = []present.Group{}
	}
	return EventsResponse{View: view, Tray: svc.TrayLabel(), Loading: svc.Loading()}
}
