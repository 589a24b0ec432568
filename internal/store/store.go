// Package store persists the normalized state document and an audit log
// of local actions in a SQLite database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// stateKey is the documents key holding the persisted state blob.
const stateKey = "state"

// Audit actions recorded by the coordinator and CLI.
const (
	AuditStateSaved     = "state_saved"
	AuditStateReset     = "state_reset"
	AuditSessionDeleted = "session_deleted"
	AuditSessionRestore = "session_restored"
	AuditFavoriteToggle = "favorite_toggled"
)

// AuditEntry is one recorded local action.
type AuditEntry struct {
	ID     int64
	Action string
	Detail string
	TS     time.Time
}

// Stats describes the persisted database contents.
type Stats struct {
	StateBytes     int64
	StateUpdatedAt time.Time
	AuditEntries   int64
}

// Store defines the persistence operations meander needs.
type Store interface {
	LoadState(ctx context.Context) ([]byte, error)
	SaveState(ctx context.Context, raw []byte) error
	Reset(ctx context.Context) error
	Audit(ctx context.Context, action, detail string) error
	RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error)
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	ownsDB bool

	// Prepared statements
	getDoc      *sql.Stmt
	upsertDoc   *sql.Stmt
	deleteDoc   *sql.Stmt
	insertAudit *sql.Stmt
}

// Open opens (creating parent directories as needed) and migrates the
// database at path, returning a ready store.
func Open(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	runner := NewMigrationRunner(db)
	if err := runner.Run(); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	s, err := NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	s.ownsDB = true
	return s, nil
}

// NewSQLiteStore creates a SQLiteStore from an already-opened and
// migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getDoc, err = s.db.Prepare(`SELECT value FROM documents WHERE key = ?`)
	if err != nil {
		return err
	}

	s.upsertDoc, err = s.db.Prepare(`
		INSERT INTO documents (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return err
	}

	s.deleteDoc, err = s.db.Prepare(`DELETE FROM documents WHERE key = ?`)
	if err != nil {
		return err
	}

	s.insertAudit, err = s.db.Prepare(`
		INSERT INTO audit_log (action, detail) VALUES (?, ?)
	`)
	if err != nil {
		return err
	}

	return nil
}

// LoadState returns the persisted state blob, or (nil, nil) when no
// state has been saved yet.
func (s *SQLiteStore) LoadState(ctx context.Context) ([]byte, error) {
	var raw []byte
	err := s.getDoc.QueryRowContext(ctx, stateKey).Scan(&raw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("load state: %w", err)
	}
	return raw, nil
}

// SaveState writes the state blob, replacing any previous version.
func (s *SQLiteStore) SaveState(ctx context.Context, raw []byte) error {
	if _, err := s.upsertDoc.ExecContext(ctx, stateKey, raw); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// Reset deletes the persisted state and records the reset in the audit
// log. The audit history itself survives a reset.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	if _, err := s.deleteDoc.ExecContext(ctx, stateKey); err != nil {
		return fmt.Errorf("reset state: %w", err)
	}
	return s.Audit(ctx, AuditStateReset, "")
}

// Audit appends one entry to the audit log.
func (s *SQLiteStore) Audit(ctx context.Context, action, detail string) error {
	if _, err := s.insertAudit.ExecContext(ctx, action, detail); err != nil {
		return fmt.Errorf("record audit entry: %w", err)
	}
	return nil
}

// RecentAudit returns the newest audit entries, most recent first.
func (s *SQLiteStore) RecentAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, action, detail, ts FROM audit_log ORDER BY id DESC LIMIT ?", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	entries := []AuditEntry{}
	for rows.Next() {
		var e AuditEntry
		var tsStr string
		if err := rows.Scan(&e.ID, &e.Action, &e.Detail, &tsStr); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.TS, _ = parseTimestamp(tsStr)
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// Stats returns aggregate information about the persisted data.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var updatedAt sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT LENGTH(value), updated_at FROM documents WHERE key = ?", stateKey,
	).Scan(&stats.StateBytes, &updatedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("state stats: %w", err)
	}
	if updatedAt.Valid {
		stats.StateUpdatedAt, _ = parseTimestamp(updatedAt.String)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log").Scan(&stats.AuditEntries)
	if err != nil {
		return nil, fmt.Errorf("count audit entries: %w", err)
	}

	return stats, nil
}

// Close releases the prepared statements, and the database itself when
// this store opened it.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.getDoc, s.upsertDoc, s.deleteDoc, s.insertAudit}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	if s.ownsDB {
		return s.db.Close()
	}
	return nil
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}
