package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/theakshaypant/meetbar/internal/api/middleware"
)

// SettingsUpdate is a partial update; omitted fields keep their value.
type SettingsUpdate struct {
	MinutesBefore        *int `json:"minutesBefore"`
	TrayCountdownMinutes *int `json:"trayCountdownMinutes"`
}

func GetSettings(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, svc.Settings())
	}
}

func UpdateSettings(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SettingsUpdate
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		v := svc.Settings()
		if req.MinutesBefore != nil {
			v.MinutesBefore = *req.MinutesBefore
		}
		if req.TrayCountdownMinutes != nil {
			v.TrayCountdownMinutes = *req.TrayCountdownMinutes
		}
		if v.MinutesBefore < 0 || v.TrayCountdownMinutes < 0 {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrValidation, "Settings must not be negative")
			return
		}

		if err := svc.ApplySettings(v); err != nil {
			middleware.WriteError(w, http.StatusInternalServerError, middleware.ErrInternalError, "Failed to update settings")
			return
		}
		middleware.WriteJSON(w, svc.Settings())
	}
}
