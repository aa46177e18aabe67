// Package storage provides SQLite-backed persistence for the watchlist
// snapshot, the per-ticker state map, and the daily audit log.
package storage

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/catalystwatch/internal/models"
	"github.com/rewired-gh/catalystwatch/internal/spac"
)

// Store wraps a SQLite database for all persistence operations.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at dbPath. An empty dbPath defaults to
// $TMPDIR/catalystwatch/data.db.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "catalystwatch", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Store{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS watchlist_snapshot (
			id           INTEGER PRIMARY KEY CHECK (id = 1),
			tickers      TEXT NOT NULL,
			sources      TEXT NOT NULL,
			collected_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS ticker_state (
			ticker             TEXT PRIMARY KEY,
			had_options_before INTEGER NOT NULL DEFAULT 0,
			known_expiries     TEXT NOT NULL DEFAULT '[]',
			option_volume_ema  REAL,
			last_alert_at      INTEGER,
			updated_at         INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			ticker  TEXT NOT NULL,
			day     TEXT NOT NULL,
			entries TEXT NOT NULL DEFAULT '[]',
			PRIMARY KEY (ticker, day)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// SaveWatchlist overwrites the single last-known-good snapshot row.
func (s *Store) SaveWatchlist(snap models.WatchlistSnapshot) error {
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	tickersJSON, err := json.Marshal(snap.Tickers)
	if err != nil {
		return fmt.Errorf("failed to marshal tickers: %w", err)
	}
	sourcesJSON, err := json.Marshal(snap.Sources)
	if err != nil {
		return fmt.Errorf("failed to marshal sources: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT OR REPLACE INTO watchlist_snapshot (id, tickers, sources, collected_at)
		VALUES (1, ?, ?, ?)`,
		string(tickersJSON), string(sourcesJSON), snap.CollectedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save watchlist snapshot: %w", err)
	}
	return nil
}

// LoadWatchlist returns the persisted snapshot. The second return value is
// false when no snapshot has ever been saved.
func (s *Store) LoadWatchlist() (models.WatchlistSnapshot, bool, error) {
	row := s.db.QueryRow(`SELECT tickers, sources, collected_at FROM watchlist_snapshot WHERE id = 1`)
	var tickersJSON, sourcesJSON string
	var collectedAtNano int64
	err := row.Scan(&tickersJSON, &sourcesJSON, &collectedAtNano)
	if err == sql.ErrNoRows {
		return models.WatchlistSnapshot{}, false, nil
	}
	if err != nil {
		return models.WatchlistSnapshot{}, false, fmt.Errorf("failed to load watchlist snapshot: %w", err)
	}
	var snap models.WatchlistSnapshot
	if err := json.Unmarshal([]byte(tickersJSON), &snap.Tickers); err != nil {
		return models.WatchlistSnapshot{}, false, fmt.Errorf("failed to unmarshal tickers: %w", err)
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &snap.Sources); err != nil {
		return models.WatchlistSnapshot{}, false, fmt.Errorf("failed to unmarshal sources: %w", err)
	}
	snap.CollectedAt = time.Unix(0, collectedAtNano)
	return snap, true, nil
}

// LoadStates returns the whole persisted ticker-state map. An empty table
// yields an empty map; callers treat load failures as "state reconstructs
// from scratch".
func (s *Store) LoadStates() (map[models.Ticker]models.TickerState, error) {
	rows, err := s.db.Query(`
		SELECT ticker, had_options_before, known_expiries, option_volume_ema, last_alert_at, updated_at
		FROM ticker_state`)
	if err != nil {
		return nil, fmt.Errorf("failed to query ticker states: %w", err)
	}
	defer rows.Close()

	states := make(map[models.Ticker]models.TickerState)
	for rows.Next() {
		var st models.TickerState
		var hadOptions int
		var expiriesJSON string
		var ema sql.NullFloat64
		var alertAtNano sql.NullInt64
		var updatedAtNano int64

		if err := rows.Scan(&st.Ticker, &hadOptions, &expiriesJSON, &ema, &alertAtNano, &updatedAtNano); err != nil {
			return nil, fmt.Errorf("failed to scan ticker state: %w", err)
		}
		st.HadOptionsBefore = hadOptions != 0
		if err := json.Unmarshal([]byte(expiriesJSON), &st.KnownExpiries); err != nil {
			return nil, fmt.Errorf("failed to unmarshal expiries: %w", err)
		}
		if ema.Valid {
			v := ema.Float64
			st.OptionVolumeEMA = &v
		}
		if alertAtNano.Valid {
			ts := time.Unix(0, alertAtNano.Int64)
			st.LastAlertAt = &ts
		}
		st.UpdatedAt = time.Unix(0, updatedAtNano)
		states[st.Ticker] = st
	}
	return states, rows.Err()
}

// SaveStates replaces the entire persisted state map in one transaction.
// Whole-map overwrite, not incremental merge: load once at process start,
// save once at process end.
func (s *Store) SaveStates(states map[models.Ticker]models.TickerState) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM ticker_state`); err != nil {
		return fmt.Errorf("failed to clear ticker states: %w", err)
	}
	for ticker, st := range states {
		expiriesJSON, err := json.Marshal(st.KnownExpiries)
		if err != nil {
			return fmt.Errorf("failed to marshal expiries: %w", err)
		}
		var ema any
		if st.OptionVolumeEMA != nil {
			ema = *st.OptionVolumeEMA
		}
		var alertAt any
		if st.LastAlertAt != nil {
			alertAt = st.LastAlertAt.UnixNano()
		}
		_, err = tx.Exec(`
			INSERT INTO ticker_state
				(ticker, had_options_before, known_expiries, option_volume_ema, last_alert_at, updated_at)
			VALUES (?,?,?,?,?,?)`,
			string(ticker), boolToInt(st.HadOptionsBefore), string(expiriesJSON),
			ema, alertAt, st.UpdatedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert ticker state: %w", err)
		}
	}
	return tx.Commit()
}

// AppendAudit appends one entry to the ticker's audit array for the current
// UTC day. One array per ticker per day, read-modify-write.
func (s *Store) AppendAudit(ticker models.Ticker, entry spac.AuditEntry) error {
	day := time.Now().UTC().Format("2006-01-02")
	return s.appendAuditFor(ticker, day, entry)
}

func (s *Store) appendAuditFor(ticker models.Ticker, day string, entry spac.AuditEntry) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var entriesJSON string
	err = tx.QueryRow(`SELECT entries FROM audit_log WHERE ticker = ? AND day = ?`,
		string(ticker), day).Scan(&entriesJSON)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	var entries []spac.AuditEntry
	if entriesJSON != "" {
		if err := json.Unmarshal([]byte(entriesJSON), &entries); err != nil {
			// A corrupt day restarts; audit is best-effort.
			entries = nil
		}
	}
	entries = append(entries, entry)
	payload, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to marshal audit entries: %w", err)
	}

	_, err = tx.Exec(`
		INSERT OR REPLACE INTO audit_log (ticker, day, entries) VALUES (?,?,?)`,
		string(ticker), day, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return tx.Commit()
}

// AuditEntries returns the entries recorded for one ticker on one day.
func (s *Store) AuditEntries(ticker models.Ticker, day string) ([]spac.AuditEntry, error) {
	var entriesJSON string
	err := s.db.QueryRow(`SELECT entries FROM audit_log WHERE ticker = ? AND day = ?`,
		string(ticker), day).Scan(&entriesJSON)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	var entries []spac.AuditEntry
	if err := json.Unmarshal([]byte(entriesJSON), &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal audit entries: %w", err)
	}
	return entries, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
