// Package sqlite is the Signal Store: a durable, append-only audit log of
// terminal-state signal events (WAL mode, single-writer connection pool,
// one INSERT per signal).
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"breakoutengine/internal/model"

	_ "github.com/mattn/go-sqlite3"
)

// ErrDuplicateKey is returned by Insert when (plan_id, state, timestamp_ms)
// already exists. A duplicate key is meaningful here — it is the Emitter's
// sole cross-process deduplication signal (spec §4.6 step 3) — so inserts
// use plain INSERT, never INSERT OR REPLACE.
var ErrDuplicateKey = errors.New("sqlite: duplicate signal key")

// StoreConfig configures the Signal Store.
type StoreConfig struct {
	DBPath string // path to SQLite database file, e.g. "data/signals.db"
}

// Store is a single-connection SQLite-backed Signal Store.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the Signal Store, creating the schema if needed.
func New(cfg StoreConfig) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened signal store at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS signals (
			plan_id      TEXT    NOT NULL,
			state        TEXT    NOT NULL,
			timestamp_ms INTEGER NOT NULL,
			payload      TEXT    NOT NULL,
			created_at   INTEGER NOT NULL DEFAULT (strftime('%%s', 'now')),
			UNIQUE (plan_id, state, timestamp_ms)
		);

		CREATE INDEX IF NOT EXISTS idx_signals_plan_id ON signals (plan_id);
	`)
	return err
}

// Insert durably appends a signal. Returns ErrDuplicateKey on a
// (plan_id, state, timestamp_ms) collision, a wrapped marshal or driver
// error otherwise.
func (s *Store) Insert(sig model.Signal) error {
	payload, err := json.Marshal(sig)
	if err != nil {
		return fmt.Errorf("marshal signal: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO signals (plan_id, state, timestamp_ms, payload) VALUES (?, ?, ?, ?)`,
		sig.PlanID, sig.State, sig.TimestampMs, string(payload),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("sqlite insert signal: %w", err)
	}
	return nil
}

// ListByPlan returns every signal recorded for planID, oldest first.
func (s *Store) ListByPlan(planID string) ([]model.Signal, error) {
	rows, err := s.db.Query(
		`SELECT timestamp_ms, payload FROM signals WHERE plan_id = ? ORDER BY timestamp_ms ASC`,
		planID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite query signals: %w", err)
	}
	defer rows.Close()

	var out []model.Signal
	for rows.Next() {
		var ts int64
		var payload string
		if err := rows.Scan(&ts, &payload); err != nil {
			return nil, fmt.Errorf("sqlite scan signal: %w", err)
		}
		var sig model.Signal
		if err := json.Unmarshal([]byte(payload), &sig); err != nil {
			return nil, fmt.Errorf("unmarshal signal: %w", err)
		}
		// TimestampMs is not part of the JSON payload; take it from its column.
		sig.TimestampMs = ts
		out = append(out, sig)
	}
	return out, rows.Err()
}

// ListDedupKeys returns every (plan_id, state, timestamp_ms) key currently
// recorded, used to seed the Emitter's in-memory dedup cache on startup so
// idempotency survives restarts (spec §4.6).
func (s *Store) ListDedupKeys() ([]model.DedupKey, error) {
	rows, err := s.db.Query(`SELECT plan_id, state, timestamp_ms FROM signals`)
	if err != nil {
		return nil, fmt.Errorf("sqlite query dedup keys: %w", err)
	}
	defer rows.Close()

	var out []model.DedupKey
	for rows.Next() {
		var k model.DedupKey
		if err := rows.Scan(&k.PlanID, &k.State, &k.TimestampMs); err != nil {
			return nil, fmt.Errorf("sqlite scan dedup key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// CountDuplicates returns the number of (plan_id, state, timestamp_ms)
// groups with more than one row. Always zero under correct operation — the
// UNIQUE constraint makes this unreachable in practice, but tests assert it
// directly (spec §4.7).
func (s *Store) CountDuplicates() (int, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM (
			SELECT plan_id, state, timestamp_ms
			FROM signals
			GROUP BY plan_id, state, timestamp_ms
			HAVING COUNT(*) > 1
		)
	`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite count duplicates: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	// mattn/go-sqlite3 reports constraint violations as *sqlite3.Error with
	// a message containing "UNIQUE constraint failed"; matching on the
	// message avoids an import-time dependency on the driver's error type.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
