package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/theakshaypant/meetbar/internal/api/middleware"
	"github.com/theakshaypant/meetbar/internal/present"
)

type CalendarsResponse struct {
	Groups []present.CalendarGroup `json:"groups"`
}

type ToggleResponse struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
}

func ListCalendars(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups := svc.Calendars()
		if groups == nil {
			groups = []present.CalendarGroup{}
		}
		middleware.WriteJSON(w, CalendarsResponse{Groups: groups})
	}
}

// ToggleCalendar flips one calendar. Turning off the last enabled
// calendar is refused silently; the response carries the actual state.
func ToggleCalendar(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		if !svc.KnownCalendar(id) {
			middleware.WriteError(w, http.StatusNotFound, middleware.ErrNotFound, "Calendar not found")
			return
		}
		middleware.WriteJSON(w, ToggleResponse{ID: id, Enabled: svc.ToggleCalendar(id)})
	}
}
