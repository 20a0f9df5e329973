package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS entries (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`

// SQLiteBackend keeps one row per storage key plus the instance metadata.
type SQLiteBackend struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteBackend) Load(ctx context.Context) (*Snapshot, error) {
	meta := make(map[string]string)
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM meta`)
	if err != nil {
		return nil, fmt.Errorf("query meta: %w", err)
	}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate meta: %w", err)
	}
	_ = rows.Close()
	if len(meta) == 0 {
		return nil, nil
	}

	snap := Snapshot{Entries: make(map[string]json.RawMessage)}
	version, err := strconv.Atoi(meta["version"])
	if err != nil {
		return nil, fmt.Errorf("parse version: %w", err)
	}
	if version != snapshotVersion {
		return nil, errors.New("unsupported ledger state version")
	}
	snap.Version = version
	if snap.Genesis, err = strconv.ParseInt(meta["genesis"], 10, 64); err != nil {
		return nil, fmt.Errorf("parse genesis: %w", err)
	}
	liveUntil, err := strconv.ParseUint(meta["live_until"], 10, 32)
	if err != nil {
		return nil, fmt.Errorf("parse live_until: %w", err)
	}
	snap.LiveUntil = uint32(liveUntil)
	snap.Archived = meta["archived"] == "true"
	if raw := meta["sequence"]; raw != "" {
		seq, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse sequence: %w", err)
		}
		snap.Sequence = uint32(seq)
	}
	if raw := meta["saved_at"]; raw != "" {
		if snap.SavedAt, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, fmt.Errorf("parse saved_at: %w", err)
		}
	}

	rows, err = s.db.QueryContext(ctx, `SELECT key, value FROM entries`)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		snap.Entries[k] = json.RawMessage(v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return &snap, nil
}

// Save writes the metadata and every entry of snap.
func (s *SQLiteBackend) Save(ctx context.Context, snap Snapshot) error {
	return s.SaveChanges(ctx, snap, snap.Entries)
}

// SaveChanges upserts the metadata and only the given entries in one
// transaction.
func (s *SQLiteBackend) SaveChanges(ctx context.Context, meta Snapshot, changed map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	values := map[string]string{
		"version":    strconv.Itoa(meta.Version),
		"genesis":    strconv.FormatInt(meta.Genesis, 10),
		"sequence":   strconv.FormatUint(uint64(meta.Sequence), 10),
		"live_until": strconv.FormatUint(uint64(meta.LiveUntil), 10),
		"archived":   strconv.FormatBool(meta.Archived),
		"saved_at":   strconv.FormatInt(meta.SavedAt, 10),
	}
	for k, v := range values {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO meta (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, v); err != nil {
			return fmt.Errorf("upsert meta %s: %w", k, err)
		}
	}
	for k, v := range changed {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO entries (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, k, string(v)); err != nil {
			return fmt.Errorf("upsert entry %s: %w", k, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}
