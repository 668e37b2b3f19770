package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
	_ "github.com/mattn/go-sqlite3"
)

const (
	createSessionsTable = `CREATE TABLE IF NOT EXISTS admin_sessions (
	id TEXT PRIMARY KEY,
	token TEXT NOT NULL,
	user_json TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	created_at INTEGER NOT NULL
)`
	createExpiryIndex = `CREATE INDEX IF NOT EXISTS admin_sessions_expires_at ON admin_sessions (expires_at)`
	upsertSession     = `INSERT OR REPLACE INTO admin_sessions (id, token, user_json, expires_at, created_at) VALUES (?, ?, ?, ?, ?)`
	selectSession     = `SELECT id, token, user_json, expires_at, created_at FROM admin_sessions WHERE id = ?`
	deleteSession     = `DELETE FROM admin_sessions WHERE id = ?`
	selectExpired     = `SELECT id FROM admin_sessions WHERE expires_at <= ?`
	deleteExpired     = `DELETE FROM admin_sessions WHERE expires_at <= ?`
)

// SQLStore persists sessions in a SQL database so they survive restarts.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps an open database.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

// OpenSQLite opens (creating if needed) a sqlite database file and runs
// the migration.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session: open sqlite "+path)
	}
	store := NewSQLStore(db)
	if err := store.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the sessions table.
func (s *SQLStore) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createSessionsTable, createExpiryIndex} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "session: migrate")
		}
	}
	return nil
}

// Save stores or replaces sess.
func (s *SQLStore) Save(ctx context.Context, sess Session) error {
	user, err := json.Marshal(sess.User)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "session: encode user")
	}
	_, err = s.db.ExecContext(ctx, upsertSession,
		sess.ID, sess.Token, string(user), sess.ExpiresAt.Unix(), sess.CreatedAt.Unix())
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "session: save")
	}
	return nil
}

// Get loads a session or returns a not-found error.
func (s *SQLStore) Get(ctx context.Context, id string) (Session, error) {
	var (
		sess      Session
		user      string
		expiresAt int64
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, selectSession, id).Scan(&sess.ID, &sess.Token, &user, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, notFound(id)
	}
	if err != nil {
		return Session{}, goerrors.Wrap(err, goerrors.CategoryInternal, "session: load")
	}
	if err := json.Unmarshal([]byte(user), &sess.User); err != nil {
		return Session{}, goerrors.Wrap(err, goerrors.CategoryInternal, "session: decode user")
	}
	sess.ExpiresAt = time.Unix(expiresAt, 0)
	sess.CreatedAt = time.Unix(createdAt, 0)
	return sess, nil
}

// Delete removes a session.
func (s *SQLStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, deleteSession, id); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "session: delete")
	}
	return nil
}

// DeleteExpired drops sessions expired at now and returns their ids.
func (s *SQLStore) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, selectExpired, now.Unix())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session: list expired")
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session: scan expired")
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session: list expired")
	}
	if len(ids) == 0 {
		return nil, nil
	}
	if _, err := s.db.ExecContext(ctx, deleteExpired, now.Unix()); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "session: purge expired")
	}
	return ids, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
