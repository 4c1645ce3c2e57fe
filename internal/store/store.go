// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"stock-alerts/internal/models"
)

// WatchlistStore holds the watched symbols and their thresholds.
type WatchlistStore interface {
	// Active returns the active entries in insertion order.
	Active(ctx context.Context) ([]models.WatchlistEntry, error)
	// Replace atomically swaps the active set for entries and returns the
	// number of active rows afterwards.
	Replace(ctx context.Context, entries []models.WatchlistEntry) (int, error)
}

// Ledger records delivered alerts and is the authority on deduplication.
// The calendar day is derived from the ledger's clock in its time zone.
type Ledger interface {
	AlreadyAlertedToday(ctx context.Context, key models.AlertKey) (bool, error)
	// LogAlert records key for today. A second call for the same key on
	// the same day is a no-op.
	LogAlert(ctx context.Context, key models.AlertKey, price float64) error
}

// LedgerReader lists stored alert records.
type LedgerReader interface {
	Records(ctx context.Context, filter RecordFilter) ([]models.AlertRecord, error)
}

// RecordFilter represents filters for querying alert records.
type RecordFilter struct {
	Day    string // YYYY-MM-DD; empty means any day
	Source string
	Symbol string
	Limit  int
}

// Clock supplies the current time and the zone that defines a day.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// SystemClock returns a clock reading wall time in loc (time.Local when nil).
func SystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.Local
	}
	return Clock{Now: time.Now, Location: loc}
}

// Today returns the current day as YYYY-MM-DD.
func (c Clock) Today() string {
	return c.current().Format(models.DayLayout)
}

// TimeOfDay returns the current time as HH:MM:SS.
func (c Clock) TimeOfDay() string {
	return c.current().Format(models.TimeLayout)
}

func (c Clock) current() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.Local
	}
	return now().In(loc)
}
