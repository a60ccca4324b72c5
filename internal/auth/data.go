package auth

import (
	"context"
	"database/sql"
	"errors"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// ============================================================================
// Users
// ============================================================================

const userColumns = `id, email, display_name, COALESCE(school_code, ''), COALESCE(office_code, ''),
	COALESCE(school_name, ''), status, created_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.Name, &u.SchoolCode, &u.OfficeCode, &u.SchoolName, &u.Status, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email))
}

func (r *Repository) CreateUser(ctx context.Context, email, name string) (*User, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO users (email, display_name) VALUES (?, ?)
	`, email, name)
	if err != nil {
		return nil, err
	}
	id, _ := result.LastInsertId()
	return r.GetUserByID(ctx, id)
}

// UpdateUserSchool records the user's home school and returns the updated profile.
func (r *Repository) UpdateUserSchool(ctx context.Context, id int64, schoolCode, officeCode, schoolName string) (*User, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE users SET school_code = ?, office_code = ?, school_name = ? WHERE id = ?
	`, schoolCode, officeCode, schoolName, id)
	if err != nil {
		return nil, err
	}
	return r.GetUserByID(ctx, id)
}

// ============================================================================
// OAuth identities
// ============================================================================

func (r *Repository) GetOAuthIdentity(ctx context.Context, provider Provider, providerID string) (*OAuthIdentity, error) {
	var o OAuthIdentity
	var accessToken, refreshToken sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, provider, provider_id, access_token, refresh_token, created_at
		FROM oauth_identities
		WHERE provider = ? AND provider_id = ?
	`, provider, providerID).Scan(&o.ID, &o.UserID, &o.Provider, &o.ProviderID, &accessToken, &refreshToken, &o.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	o.AccessToken = ScanNullableString(accessToken)
	o.RefreshToken = ScanNullableString(refreshToken)
	return &o, nil
}

func (r *Repository) CreateOAuthIdentity(ctx context.Context, userID int64, provider Provider, providerID, accessToken, refreshToken string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO oauth_identities (user_id, provider, provider_id, access_token, refresh_token)
		VALUES (?, ?, ?, ?, ?)
	`, userID, provider, providerID, accessToken, refreshToken)
	return err
}

func (r *Repository) UpdateOAuthIdentityTokens(ctx context.Context, id int64, accessToken, refreshToken string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE oauth_identities SET access_token = ?, refresh_token = ? WHERE id = ?
	`, accessToken, refreshToken, id)
	return err
}
