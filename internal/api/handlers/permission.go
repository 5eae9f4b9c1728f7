package handlers

import (
	"net/http"

	"github.com/theakshaypant/meetbar/internal/api/middleware"
	"github.com/theakshaypant/meetbar/internal/core"
)

type PermissionResponse struct {
	Status core.PermissionStatus `json:"status"`
}

func GetPermission(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, PermissionResponse{Status: svc.Permission()})
	}
}

// RequestPermission runs the interactive grant and reports the state
// afterwards. A declined request still answers 200.
func RequestPermission(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, PermissionResponse{Status: svc.RequestPermission(r.Context())})
	}
}
