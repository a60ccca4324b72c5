package auth

import (
	"context"
	"path/filepath"
	"testing"

	"mealreview/internal/databases"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret-0123456789"

type fixture struct {
	repo     *Repository
	sessions *SessionStore
	issuer   *TokenIssuer
	router   *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := databases.OpenMigrated(filepath.Join(t.TempDir(), "auth.db"), databases.Auth)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := NewRepository(db)
	sessions := NewSessionStore(repo, 0)
	issuer, err := NewTokenIssuer(testSecret, 0)
	require.NoError(t, err)

	handler := NewHandler(repo, NewOAuthConfig(ProviderConfig{}, ProviderConfig{}, "http://localhost"),
		NewOAuthStateStore(repo), sessions, issuer, false, zap.NewNop())
	middleware := NewMiddleware(repo, issuer, sessions, zap.NewNop())

	router := gin.New()
	RegisterRoutes(router.Group("/api"), handler, middleware)

	return &fixture{repo: repo, sessions: sessions, issuer: issuer, router: router}
}

// signIn creates a user with a live session and returns its access and refresh tokens.
func (f *fixture) signIn(t *testing.T, email string) (*User, string, string) {
	t.Helper()
	ctx := context.Background()
	user, err := f.repo.CreateUser(ctx, email, "테스터")
	require.NoError(t, err)
	session, refresh, err := f.sessions.CreateSession(ctx, user.ID)
	require.NoError(t, err)
	access, _, err := f.issuer.Issue(user, session.ID)
	require.NoError(t, err)
	return user, access, refresh
}
