// Package handlers implements the bridge's REST endpoints.
package handlers

import (
	"context"

	"github.com/theakshaypant/meetbar/internal/core"
	"github.com/theakshaypant/meetbar/internal/present"
	"github.com/theakshaypant/meetbar/internal/settings"
	"github.com/theakshaypant/meetbar/internal/tray"
)

// Service is the application surface the handlers drive.
type Service interface {
	Permission() core.PermissionStatus
	RequestPermission(ctx context.Context) core.PermissionStatus
	Calendars() []present.CalendarGroup
	KnownCalendar(id string) bool
	ToggleCalendar(id string) bool
	View() present.View
	TrayLabel() tray.Label
	Loading() bool
	ForceSync(ctx context.Context) error
	Settings() settings.Values
	ApplySettings(v settings.Values) error
}
