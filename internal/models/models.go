// Package models provides domain models for the stock alerts application.
package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// WatchlistEntry is a watched symbol with optional price thresholds.
// Either threshold may be absent; an entry with neither can never alert.
type WatchlistEntry struct {
	Symbol    string              `db:"symbol"`
	Above     decimal.NullDecimal `db:"above"`
	Below     decimal.NullDecimal `db:"below"`
	Active    bool                `db:"active"`
	CreatedAt time.Time           `db:"created_at"`
	UpdatedAt time.Time           `db:"updated_at"`
}

// NewWatchlistEntry builds an active entry. Nil thresholds are left unset.
func NewWatchlistEntry(symbol string, above, below *decimal.Decimal) WatchlistEntry {
	e := WatchlistEntry{
		Symbol: NormalizeSymbol(symbol),
		Active: true,
	}
	if above != nil {
		e.Above = decimal.NewNullDecimal(*above)
	}
	if below != nil {
		e.Below = decimal.NewNullDecimal(*below)
	}
	return e
}

// HasThresholds reports whether at least one threshold is configured.
func (e WatchlistEntry) HasThresholds() bool {
	return e.Above.Valid || e.Below.Valid
}

// Threshold returns the threshold configured for the given direction.
func (e WatchlistEntry) Threshold(d Direction) (decimal.Decimal, bool) {
	switch d {
	case DirectionAbove:
		return e.Above.Decimal, e.Above.Valid
	case DirectionBelow:
		return e.Below.Decimal, e.Below.Valid
	default:
		return decimal.Zero, false
	}
}

// NormalizeSymbol trims and upper-cases a ticker.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// FormatThreshold renders an optional threshold for summaries.
func FormatThreshold(d decimal.NullDecimal) string {
	if !d.Valid {
		return "None"
	}
	return "$" + d.Decimal.StringFixed(2)
}
