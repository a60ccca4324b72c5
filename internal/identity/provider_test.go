package identity

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"mealreview/internal/mealapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeAPI struct {
	mu        sync.Mutex
	refreshes []string
	logouts   []string
	pair      *mealapi.TokenPair
	err       error
}

func (f *fakeAPI) RefreshToken(_ context.Context, refreshToken string) (*mealapi.TokenPair, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, refreshToken)
	return f.pair, f.err
}

func (f *fakeAPI) Logout(_ context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logouts = append(f.logouts, token)
	return errors.New("offline")
}

func newProvider(t *testing.T, api TokenAPI) (*Provider, *FileStore) {
	t.Helper()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "session.yaml"))
	p, err := NewProvider(store, api, zap.NewNop())
	require.NoError(t, err)
	return p, store
}

func session(expiry time.Time) *Session {
	return &Session{
		AccessToken:  "access-1",
		RefreshToken: "mr_1",
		Expiry:       expiry,
		User:         &mealapi.User{ID: 1, Email: "a@example.com", SchoolCode: "7010569", OfficeCode: "B10"},
	}
}

func TestFileStore_RoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "session.yaml"))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, got, "missing file means no session")

	want := session(time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC))
	require.NoError(t, store.Save(want))
	got, err = store.Load()
	require.NoError(t, err)
	assert.Equal(t, want.AccessToken, got.AccessToken)
	assert.Equal(t, want.User, got.User)
	assert.True(t, want.Expiry.Equal(got.Expiry))

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	got, err = store.Load()
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSignInAndOut_Notify(t *testing.T) {
	api := &fakeAPI{}
	p, store := newProvider(t, api)
	assert.Nil(t, p.Current())

	var events []*Session
	unsubscribe := p.Subscribe(func(s *Session) { events = append(events, s) })

	require.NoError(t, p.SignIn(context.Background(), session(time.Now().Add(time.Hour))))
	require.Len(t, events, 1)
	assert.Equal(t, int64(1), events[0].User.ID)

	// A new provider over the same file restores the session.
	restored, err := NewProvider(store, api, nil)
	require.NoError(t, err)
	assert.Equal(t, "access-1", restored.Current().AccessToken)

	// Server logout failure does not block the local sign out.
	require.NoError(t, p.SignOut(context.Background()))
	require.Len(t, events, 2)
	assert.Nil(t, events[1])
	assert.Equal(t, []string{"access-1"}, api.logouts)
	assert.Nil(t, p.Current())

	unsubscribe()
	require.NoError(t, p.SignIn(context.Background(), session(time.Time{})))
	assert.Len(t, events, 2)
}

func TestToken_ValidTokenIsReused(t *testing.T) {
	api := &fakeAPI{}
	p, _ := newProvider(t, api)
	require.NoError(t, p.SignIn(context.Background(), session(time.Now().Add(time.Hour))))

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-1", tok)
	assert.Empty(t, api.refreshes)
}

func TestToken_RefreshesWhenExpired(t *testing.T) {
	api := &fakeAPI{pair: &mealapi.TokenPair{
		AccessToken:  "access-2",
		RefreshToken: "mr_2",
		ExpiresAt:    time.Now().Add(time.Hour),
		User:         &mealapi.User{ID: 1, Email: "a@example.com"},
	}}
	p, store := newProvider(t, api)
	require.NoError(t, p.SignIn(context.Background(), session(time.Now().Add(-time.Minute))))

	tok, err := p.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "access-2", tok)
	assert.Equal(t, []string{"mr_1"}, api.refreshes)

	saved, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "mr_2", saved.RefreshToken)
	assert.Empty(t, saved.User.SchoolCode)

	// The refreshed token is now valid and reused.
	_, err = p.Token(context.Background())
	require.NoError(t, err)
	assert.Len(t, api.refreshes, 1)
}

func TestToken_RejectedRefreshSignsOut(t *testing.T) {
	api := &fakeAPI{err: &mealapi.APIError{Status: http.StatusUnauthorized, Reason: "session expired or invalid"}}
	p, _ := newProvider(t, api)
	require.NoError(t, p.SignIn(context.Background(), session(time.Now().Add(-time.Minute))))

	var signedOut bool
	p.Subscribe(func(s *Session) { signedOut = s == nil })

	_, err := p.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
	assert.True(t, signedOut)
	assert.Nil(t, p.Current())
}

func TestToken_NetworkFailureKeepsSession(t *testing.T) {
	api := &fakeAPI{err: mealapi.ErrNetwork}
	p, _ := newProvider(t, api)
	require.NoError(t, p.SignIn(context.Background(), session(time.Now().Add(-time.Minute))))

	_, err := p.Token(context.Background())
	assert.ErrorIs(t, err, mealapi.ErrNetwork)
	assert.NotNil(t, p.Current())
}

func TestToken_SignedOut(t *testing.T) {
	p, _ := newProvider(t, &fakeAPI{})
	_, err := p.Token(context.Background())
	assert.ErrorIs(t, err, ErrNotSignedIn)
}
