// Package watchlist reads and writes watchlist files for the bulk loader.
package watchlist

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"

	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/models"
	"stock-alerts/internal/security"
)

// Row is one line of a watchlist CSV file: symbol,above,below.
// Empty threshold cells mean the threshold is not set.
type Row struct {
	Symbol string `csv:"symbol"`
	Above  string `csv:"above"`
	Below  string `csv:"below"`
}

// ParseFile parses the watchlist CSV at path.
func ParseFile(path string) ([]models.WatchlistEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open watchlist: %w", err)
	}
	defer f.Close()
	return ParseCSV(f)
}

// ParseCSV parses and validates watchlist rows. Symbols are normalised and
// must be unique; file order is preserved.
func ParseCSV(r io.Reader) ([]models.WatchlistEntry, error) {
	var rows []*Row
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("%w: parse watchlist csv: %w", apperrors.ErrInputValidation, err)
	}

	v := security.NewInputValidator(true)
	seen := make(map[string]int, len(rows))
	entries := make([]models.WatchlistEntry, 0, len(rows))

	for i, row := range rows {
		line := i + 2 // header is line 1

		if err := v.ValidateSymbol(row.Symbol); err != nil {
			return nil, rowError(line, err)
		}
		symbol := security.SanitizeSymbol(row.Symbol)
		if prev, dup := seen[symbol]; dup {
			return nil, rowError(line, fmt.Errorf("duplicate symbol %s (first on line %d)", symbol, prev))
		}
		seen[symbol] = line

		above, err := parseThreshold(row.Above)
		if err != nil {
			return nil, rowError(line, fmt.Errorf("above: %w", err))
		}
		below, err := parseThreshold(row.Below)
		if err != nil {
			return nil, rowError(line, fmt.Errorf("below: %w", err))
		}
		if err := v.ValidateThreshold("above", above); err != nil {
			return nil, rowError(line, err)
		}
		if err := v.ValidateThreshold("below", below); err != nil {
			return nil, rowError(line, err)
		}

		entries = append(entries, models.WatchlistEntry{
			Symbol: symbol,
			Above:  above,
			Below:  below,
			Active: true,
		})
	}

	return entries, nil
}

// WriteCSV writes entries in the format ParseCSV reads.
func WriteCSV(w io.Writer, entries []models.WatchlistEntry) error {
	rows := make([]*Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, &Row{
			Symbol: e.Symbol,
			Above:  nullString(e.Above),
			Below:  nullString(e.Below),
		})
	}
	return gocsv.Marshal(&rows, w)
}

func parseThreshold(s string) (decimal.NullDecimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(strings.TrimPrefix(s, "$"))
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid number %q", s)
	}
	return decimal.NewNullDecimal(d), nil
}

func nullString(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.String()
}

func rowError(line int, err error) error {
	return fmt.Errorf("%w: watchlist line %d: %w", apperrors.ErrInputValidation, line, err)
}
