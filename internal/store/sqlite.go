package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nbadran/instadm/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex // serializes session writes to prevent SQLITE_BUSY
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS platform_sessions (
		slot TEXT PRIMARY KEY,
		username TEXT NOT NULL,
		user_id TEXT NOT NULL,
		session_json TEXT NOT NULL,
		cookies_json TEXT,
		created_at INTEGER NOT NULL
	);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetSession retrieves the persisted session for the current slot.
func (s *SQLiteStore) GetSession(ctx context.Context) (*domain.StoredSession, error) {
	query := `
		SELECT username, user_id, session_json, cookies_json, created_at
		FROM platform_sessions WHERE slot = ?`

	row := s.db.QueryRowContext(ctx, query, CurrentSlot)

	var sess domain.StoredSession
	var sessionJSON string
	var cookiesJSON sql.NullString
	var createdAt int64

	err := row.Scan(&sess.Username, &sess.UserID, &sessionJSON, &cookiesJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan session row: %w", err)
	}

	sess.Session = []byte(sessionJSON)
	if cookiesJSON.Valid {
		sess.Cookies = []byte(cookiesJSON.String)
	}
	sess.CreatedAt = time.Unix(createdAt, 0)

	return &sess, nil
}

// SaveSession writes the session record, sanitizing blobs first.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess *domain.StoredSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := SanitizeBlob(sess.Session)
	if err != nil {
		return fmt.Errorf("sanitize session blob: %w", err)
	}
	cookies, err := SanitizeBlob(sess.Cookies)
	if err != nil {
		return fmt.Errorf("sanitize cookie blob: %w", err)
	}

	query := `
	INSERT INTO platform_sessions (slot, username, user_id, session_json, cookies_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(slot) DO UPDATE SET
		username = excluded.username,
		user_id = excluded.user_id,
		session_json = excluded.session_json,
		cookies_json = excluded.cookies_json,
		created_at = excluded.created_at`

	var cookieArg interface{}
	if len(cookies) > 0 {
		cookieArg = string(cookies)
	}

	createdAt := sess.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, query,
		CurrentSlot, sess.Username, sess.UserID,
		string(session), cookieArg, createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// DeleteSession removes the persisted record. Retries with exponential
// backoff on SQLITE_BUSY, which can surface when a save is in flight.
func (s *SQLiteStore) DeleteSession(ctx context.Context) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	for i := 0; i < maxRetries; i++ {
		err := s.deleteSessionOnce(ctx)
		if err == nil {
			return nil
		}

		if isSQLiteBusy(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("DeleteSession hit SQLITE_BUSY, retrying", "attempt", i+1, "delay", delay)
			time.Sleep(delay)
			continue
		}

		return fmt.Errorf("delete session after %d attempts: %w", i+1, err)
	}

	return nil
}

func (s *SQLiteStore) deleteSessionOnce(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM platform_sessions WHERE slot = ?`, CurrentSlot); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// isSQLiteBusy reports whether the error is a SQLite concurrency error
// worth retrying.
func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
