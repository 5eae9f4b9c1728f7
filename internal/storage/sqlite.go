// Package storage keeps the last synced events locally so the periodic
// refresh can re-read them without a network round trip.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/theakshaypant/meetbar/internal/core"
)

// MemoryDSN opens a private in-memory database.
const MemoryDSN = ":memory:"

// SQLite is a core.Storage on a SQLite file.
type SQLite struct {
	db   *sql.DB
	path string
	loc  *time.Location
}

// OpenSQLite opens (and migrates) the database at path. Dates of all-day
// events are resolved in loc for window queries.
func OpenSQLite(ctx context.Context, path string, loc *time.Location) (*SQLite, error) {
	if loc == nil {
		loc = time.Local
	}

	dsn := MemoryDSN
	if path != MemoryDSN {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", path)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if path == MemoryDSN {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(5)
		db.SetMaxIdleConns(2)
	}

	s := &SQLite{db: db, path: path, loc: loc}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the filesystem path to the database file.
func (s *SQLite) Path() string { return s.path }

func (s *SQLite) Close() error { return s.db.Close() }

// transaction executes fn within a database transaction, rolling back
// when fn fails.
func (s *SQLite) transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rolling back transaction: %v (original error: %w)", rbErr, err)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *SQLite) ReplaceEvents(ctx context.Context, providerID string, events []core.Event) error {
	return s.transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE provider_id = ?`, providerID); err != nil {
			return fmt.Errorf("clearing events: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR REPLACE INTO events (
				provider_id, id, seq, calendar_id, calendar_name, title, description,
				location, meeting_url, external_url, status, start_at, start_date,
				end_at, end_date, all_day, start_unix, end_unix
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range events {
			startUnix, endUnix := s.bounds(e)
			_, err := stmt.ExecContext(ctx,
				providerID, e.ID, i, e.Calendar.ID, e.Calendar.Name, e.Title, e.Description,
				e.Location, e.MeetingURL, e.ExternalURL, e.Status,
				formatInstant(e.Start), e.Start.Date,
				formatInstant(e.End), e.End.Date,
				e.IsAllDay, startUnix, endUnix,
			)
			if err != nil {
				return fmt.Errorf("inserting event %s: %w", e.ID, err)
			}
		}
		return nil
	})
}

func (s *SQLite) ListEvents(ctx context.Context, filter core.EventFilter) ([]core.Event, error) {
	var (
		where []string
		args  []interface{}
	)
	if !filter.End.IsZero() {
		where = append(where, "start_unix < ?")
		args = append(args, filter.End.Unix())
	}
	if !filter.Start.IsZero() {
		where = append(where, "(end_unix = 0 OR end_unix > ?)")
		args = append(args, filter.Start.Unix())
	}
	if len(filter.ProviderIDs) > 0 {
		where = append(where, "provider_id IN (?"+strings.Repeat(", ?", len(filter.ProviderIDs)-1)+")")
		for _, id := range filter.ProviderIDs {
			args = append(args, id)
		}
	}

	query := `
		SELECT provider_id, id, calendar_id, calendar_name, title, description,
		       location, meeting_url, external_url, status, start_at, start_date,
		       end_at, end_date, all_day
		FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY start_unix, all_day DESC, seq"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []core.Event
	for rows.Next() {
		var (
			e                core.Event
			startAt, endAt   sql.NullString
			startDay, endDay string
		)
		if err := rows.Scan(
			&e.ProviderID, &e.ID, &e.Calendar.ID, &e.Calendar.Name, &e.Title, &e.Description,
			&e.Location, &e.MeetingURL, &e.ExternalURL, &e.Status, &startAt, &startDay,
			&endAt, &endDay, &e.IsAllDay,
		); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		if e.Start, err = parseWhen(startAt, startDay); err != nil {
			return nil, fmt.Errorf("event %s start: %w", e.ID, err)
		}
		if e.End, err = parseWhen(endAt, endDay); err != nil {
			return nil, fmt.Errorf("event %s end: %w", e.ID, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *SQLite) PurgeProvider(ctx context.Context, providerID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE provider_id = ?`, providerID); err != nil {
		return fmt.Errorf("purging provider %s: %w", providerID, err)
	}
	return nil
}

// bounds returns the unix window an event occupies. All-day events cover
// through the end of their last date; a missing end stores 0.
func (s *SQLite) bounds(e core.Event) (int64, int64) {
	var startUnix, endUnix int64
	if t, ok := e.Start.Instant(s.loc); ok {
		startUnix = t.Unix()
	}
	if e.IsAllDay {
		last := e.End
		if last.IsZero() {
			last = e.Start
		}
		if t, ok := last.Instant(s.loc); ok {
			endUnix = t.AddDate(0, 0, 1).Unix()
		}
		return startUnix, endUnix
	}
	if t, ok := e.End.Instant(s.loc); ok {
		endUnix = t.Unix()
	}
	return startUnix, endUnix
}

func formatInstant(w core.When) sql.NullString {
	t, ok := w.Time()
	if !ok {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(time.RFC3339Nano), Valid: true}
}

func parseWhen(at sql.NullString, date string) (core.When, error) {
	if at.Valid && at.String != "" {
		t, err := time.Parse(time.RFC3339Nano, at.String)
		if err != nil {
			return core.When{}, err
		}
		return core.At(t), nil
	}
	return core.When{Date: date}, nil
}
