package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultSessionDuration is how long a refresh token stays usable
	DefaultSessionDuration = 30 * 24 * time.Hour
)

var ErrSessionNotFound = errors.New("session expired or invalid")

// SessionStore keeps one row per signed-in device. The refresh token is stored hashed
// and rotates on every use.
type SessionStore struct {
	repo            *Repository
	sessionDuration time.Duration
}

func NewSessionStore(repo *Repository, sessionDuration time.Duration) *SessionStore {
	if sessionDuration == 0 {
		sessionDuration = DefaultSessionDuration
	}
	return &SessionStore{repo: repo, sessionDuration: sessionDuration}
}

// CreateSession starts a session and returns it with its raw refresh token.
func (s *SessionStore) CreateSession(ctx context.Context, userID int64) (*Session, string, error) {
	rawRefresh, refreshHash, err := GenerateRefreshToken()
	if err != nil {
		return nil, "", err
	}

	now := time.Now()
	session := &Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		ExpiresAt: now.Add(s.sessionDuration),
		CreatedAt: now,
	}
	_, err = s.repo.db.ExecContext(ctx, `
		INSERT INTO sessions (id, user_id, refresh_hash, expires_at) VALUES (?, ?, ?, ?)
	`, session.ID, session.UserID, refreshHash, session.ExpiresAt)
	if err != nil {
		return nil, "", err
	}
	return session, rawRefresh, nil
}

func (s *SessionStore) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	var session Session
	err := s.repo.db.QueryRowContext(ctx, `
		SELECT id, user_id, expires_at, created_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`, sessionID, time.Now()).Scan(&session.ID, &session.UserID, &session.ExpiresAt, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Rotate exchanges a refresh token for a new one and extends the session.
// The old token stops working.
func (s *SessionStore) Rotate(ctx context.Context, rawRefresh string) (*Session, string, error) {
	newRaw, newHash, err := GenerateRefreshToken()
	if err != nil {
		return nil, "", err
	}

	tx, err := s.repo.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var session Session
	err = tx.QueryRowContext(ctx, `
		SELECT id, user_id, created_at FROM sessions
		WHERE refresh_hash = ? AND expires_at > ?
	`, hashToken(rawRefresh), time.Now()).Scan(&session.ID, &session.UserID, &session.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, "", ErrSessionNotFound
	}
	if err != nil {
		return nil, "", err
	}

	session.ExpiresAt = time.Now().Add(s.sessionDuration)
	if _, err := tx.ExecContext(ctx, `
		UPDATE sessions SET refresh_hash = ?, expires_at = ? WHERE id = ?
	`, newHash, session.ExpiresAt, session.ID); err != nil {
		return nil, "", err
	}
	if err := tx.Commit(); err != nil {
		return nil, "", err
	}
	return &session, newRaw, nil
}

func (s *SessionStore) DeleteSession(ctx context.Context, sessionID string) error {
	_, err := s.repo.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", sessionID)
	return err
}

func (s *SessionStore) DeleteUserSessions(ctx context.Context, userID int64) error {
	_, err := s.repo.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID)
	return err
}

func (s *SessionStore) CleanupExpiredSessions(ctx context.Context) error {
	_, err := s.repo.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", time.Now())
	return err
}
