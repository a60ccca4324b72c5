package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"time"
)

const (
	// OAuthStateExpiry is how long an OAuth state is valid
	OAuthStateExpiry = 10 * time.Minute
)

type OAuthStateStore struct {
	repo *Repository
}

func NewOAuthStateStore(repo *Repository) *OAuthStateStore {
	return &OAuthStateStore{repo: repo}
}

func (s *OAuthStateStore) CreateState(ctx context.Context) (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}

	state := base64.RawURLEncoding.EncodeToString(bytes)
	_, err := s.repo.db.ExecContext(ctx, `
		INSERT INTO oauth_states (state, expires_at) VALUES (?, ?)
	`, state, time.Now().Add(OAuthStateExpiry))
	if err != nil {
		return "", err
	}
	return state, nil
}

// ValidateState consumes the state: a state validates at most once.
func (s *OAuthStateStore) ValidateState(ctx context.Context, state string) (bool, error) {
	result, err := s.repo.db.ExecContext(ctx, `
		DELETE FROM oauth_states
		WHERE state = ? AND expires_at > ?
	`, state, time.Now())
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (s *OAuthStateStore) CleanupExpiredStates(ctx context.Context) error {
	_, err := s.repo.db.ExecContext(ctx, `
		DELETE FROM oauth_states WHERE expires_at <= ?
	`, time.Now())
	return err
}
