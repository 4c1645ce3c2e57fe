// Package store provides data persistence implementations.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	apperrors "stock-alerts/internal/errors"
	"stock-alerts/internal/models"
)

// timestampLayout matches SQLite's datetime() output.
const timestampLayout = "2006-01-02 15:04:05"

// SQLiteStore implements WatchlistStore, Ledger and LedgerReader using SQLite.
type SQLiteStore struct {
	db    *sqlx.DB
	clock Clock
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
// Schema initialization is idempotent.
func NewSQLiteStore(dbPath string, clock Clock) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, apperrors.Database(err, "open database")
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	if clock.Now == nil {
		clock = SystemClock(clock.Location)
	}

	store := &SQLiteStore{
		db:    db,
		clock: clock,
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, apperrors.Database(err, "initialize schema")
	}

	return store, nil
}

// initSchema creates all required tables and indexes.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Watched symbols; the previous load is kept with active = 0
	CREATE TABLE IF NOT EXISTS watchlist (
		symbol TEXT NOT NULL,
		active INTEGER NOT NULL DEFAULT 1,
		above REAL,
		below REAL,
		created_at DATETIME DEFAULT (datetime('now', 'localtime')),
		updated_at DATETIME DEFAULT (datetime('now', 'localtime')),
		PRIMARY KEY (symbol, active)
	);

	-- Delivered alerts, one row per key per day
	CREATE TABLE IF NOT EXISTS alerts (
		source TEXT NOT NULL,
		symbol TEXT NOT NULL,
		threshold TEXT NOT NULL,
		direction TEXT NOT NULL,
		alerted_date TEXT NOT NULL,
		alerted_time TEXT NOT NULL,
		price REAL NOT NULL,
		PRIMARY KEY (source, symbol, threshold, direction, alerted_date)
	);

	CREATE INDEX IF NOT EXISTS idx_alerts_date ON alerts(alerted_date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// withConn runs fn on a dedicated connection that is released on return.
func (s *SQLiteStore) withConn(ctx context.Context, op string, fn func(conn *sqlx.Conn) error) error {
	conn, err := s.db.Connx(ctx)
	if err != nil {
		return apperrors.Database(err, op)
	}
	defer conn.Close()

	if err := fn(conn); err != nil {
		return apperrors.Database(err, op)
	}
	return nil
}

// withTx runs fn in a transaction, rolling back if fn or the commit fails.
func (s *SQLiteStore) withTx(ctx context.Context, op string, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Database(err, op)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return apperrors.Database(err, op)
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Database(err, op)
	}
	return nil
}

// Watchlist operations

// Active returns the active watchlist entries in load order.
func (s *SQLiteStore) Active(ctx context.Context) ([]models.WatchlistEntry, error) {
	var entries []models.WatchlistEntry
	err := s.withConn(ctx, "load watchlist", func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &entries, `
			SELECT symbol, above, below, active, created_at, updated_at
			FROM watchlist
			WHERE active = 1
			ORDER BY rowid
		`)
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Replace swaps the active set for entries in one transaction: rows left
// inactive by the previous load are dropped, the current active set is
// deactivated and entries are inserted as the new active set. A later
// duplicate symbol replaces an earlier one.
func (s *SQLiteStore) Replace(ctx context.Context, entries []models.WatchlistEntry) (int, error) {
	now := s.clock.current().Format(timestampLayout)

	err := s.withTx(ctx, "replace watchlist", func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist WHERE active = 0`); err != nil {
			return fmt.Errorf("deleting inactive rows: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE watchlist SET active = 0, updated_at = ? WHERE active = 1`, now); err != nil {
			return fmt.Errorf("deactivating active rows: %w", err)
		}

		stmt, err := tx.PreparexContext(ctx, `
			INSERT OR REPLACE INTO watchlist (symbol, active, above, below, created_at, updated_at)
			VALUES (?, 1, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, e := range entries {
			symbol := models.NormalizeSymbol(e.Symbol)
			if symbol == "" {
				return apperrors.NewValidationError("symbol", e.Symbol, "must not be empty")
			}
			if _, err := stmt.ExecContext(ctx, symbol, e.Above, e.Below, now, now); err != nil {
				return fmt.Errorf("inserting %s: %w", symbol, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	var count int
	err = s.withConn(ctx, "count watchlist", func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &count, `SELECT COUNT(*) FROM watchlist WHERE active = 1`)
	})
	return count, err
}

// Ledger operations

// AlreadyAlertedToday reports whether key has been recorded today.
func (s *SQLiteStore) AlreadyAlertedToday(ctx context.Context, key models.AlertKey) (bool, error) {
	var exists bool
	err := s.withConn(ctx, "check alert", func(conn *sqlx.Conn) error {
		return conn.GetContext(ctx, &exists, `
			SELECT EXISTS(
				SELECT 1 FROM alerts
				WHERE source = ? AND symbol = ? AND threshold = ? AND direction = ? AND alerted_date = ?
			)
		`, key.Source, key.Symbol, key.ThresholdText(), string(key.Direction), s.clock.Today())
	})
	return exists, err
}

// LogAlert records key for today with the triggering price.
func (s *SQLiteStore) LogAlert(ctx context.Context, key models.AlertKey, price float64) error {
	now := s.clock.current()
	return s.withConn(ctx, "log alert", func(conn *sqlx.Conn) error {
		_, err := conn.ExecContext(ctx, `
			INSERT OR IGNORE INTO alerts
			(source, symbol, threshold, direction, alerted_date, alerted_time, price)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, key.Source, key.Symbol, key.ThresholdText(), string(key.Direction),
			now.Format(models.DayLayout), now.Format(models.TimeLayout), price)
		return err
	})
}

// Records lists alert records, newest first.
func (s *SQLiteStore) Records(ctx context.Context, filter RecordFilter) ([]models.AlertRecord, error) {
	query := `SELECT source, symbol, threshold, direction, alerted_date, alerted_time, price FROM alerts`
	var conds []string
	var args []interface{}

	if filter.Day != "" {
		conds = append(conds, "alerted_date = ?")
		args = append(args, filter.Day)
	}
	if filter.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, filter.Source)
	}
	if filter.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, models.NormalizeSymbol(filter.Symbol))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY alerted_date DESC, alerted_time DESC, symbol"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	var records []models.AlertRecord
	err := s.withConn(ctx, "list alerts", func(conn *sqlx.Conn) error {
		return conn.SelectContext(ctx, &records, query, args...)
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
