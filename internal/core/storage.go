package core

import (
	"context"
	"time"
)

// Storage handles the persistence of synced events.
type Storage interface {
	// ReplaceEvents swaps every stored event of a provider for the given
	// batch in one step.
	ReplaceEvents(ctx context.Context, providerID string, events []Event) error
	// ListEvents returns events sorted by start time.
	ListEvents(ctx context.Context, filter EventFilter) ([]Event, error)
	// PurgeProvider removes events associated with a specific provider ID.
	PurgeProvider(ctx context.Context, providerID string) error
	Close() error
}

// EventFilter defines criteria for querying the database.
// Zero Start or End leaves that side unbounded.
type EventFilter struct {
	Start time.Time
	End   time.Time
	// If empty, return all providers
	ProviderIDs []string
}
