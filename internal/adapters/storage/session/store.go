// Package session persists admin sessions. The cookie value is never stored:
// rows are keyed by its SHA-256 and the backend bearer token is sealed.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"memberdesk/internal/adapters/storage"
)

// DefaultTTL is how long a session stays valid after login.
const DefaultTTL = 24 * time.Hour

// timeLayout is fixed width so stored timestamps compare correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNotFound is returned for unknown or expired sessions.
var ErrNotFound = errors.New("session: not found")

// Session is an authenticated admin.
type Session struct {
	ID           string // cookie value; only populated by Create and Get
	AdminEmail   string
	AdminName    string
	BackendToken string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	LastSeenAt   time.Time
}

// Store is a SQLite-backed session store.
type Store struct {
	db     storage.SQLDB
	sealer *Sealer
	ttl    time.Duration
	now    func() time.Time
}

// NewStore creates a session store.
// PRE: ttl <= 0 selects DefaultTTL
func NewStore(db storage.SQLDB, sealer *Sealer, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{db: db, sealer: sealer, ttl: ttl, now: time.Now}
}

func hashID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}

// Create opens a session for an admin whose backend login succeeded.
// POST: returned Session.ID is a fresh 64-char hex value
func (s *Store) Create(ctx context.Context, email, name, backendToken string) (Session, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return Session{}, fmt.Errorf("generate session id: %w", err)
	}
	sealed, err := s.sealer.Seal(backendToken)
	if err != nil {
		return Session{}, err
	}
	now := s.now().UTC()
	sess := Session{
		ID:           hex.EncodeToString(raw),
		AdminEmail:   email,
		AdminName:    name,
		BackendToken: backendToken,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		LastSeenAt:   now,
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO admin_session (id_hash, admin_email, admin_name, sealed_token, created_at, expires_at, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		hashID(sess.ID), email, name, sealed,
		now.Format(timeLayout), sess.ExpiresAt.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return Session{}, fmt.Errorf("insert session: %w", err)
	}
	return sess, nil
}

// Get returns the live session for a cookie value and refreshes last_seen_at.
// POST: ErrNotFound for unknown, expired or unsealable sessions
func (s *Store) Get(ctx context.Context, id string) (Session, error) {
	if id == "" {
		return Session{}, ErrNotFound
	}
	now := s.now().UTC()
	var sess Session
	var sealed []byte
	var created, expires, seen string
	err := s.db.QueryRowContext(ctx,
		`SELECT admin_email, admin_name, sealed_token, created_at, expires_at, last_seen_at
		 FROM admin_session WHERE id_hash = ? AND expires_at > ?`,
		hashID(id), now.Format(timeLayout)).Scan(&sess.AdminEmail, &sess.AdminName, &sealed, &created, &expires, &seen)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	token, err := s.sealer.Open(sealed)
	if err != nil {
		// Secret rotated; the session can no longer reach the backend.
		_ = s.Delete(ctx, id)
		return Session{}, ErrNotFound
	}
	sess.ID = id
	sess.BackendToken = token
	sess.CreatedAt, _ = time.Parse(timeLayout, created)
	sess.ExpiresAt, _ = time.Parse(timeLayout, expires)
	sess.LastSeenAt = now

	if _, err := s.db.ExecContext(ctx,
		`UPDATE admin_session SET last_seen_at = ? WHERE id_hash = ?`,
		now.Format(timeLayout), hashID(id)); err != nil {
		return Session{}, fmt.Errorf("touch session: %w", err)
	}
	return sess, nil
}

// Delete removes a session. Deleting an unknown session is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM admin_session WHERE id_hash = ?`, hashID(id)); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// PurgeExpired removes expired sessions and reports how many were removed.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM admin_session WHERE expires_at <= ?`, s.now().UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
