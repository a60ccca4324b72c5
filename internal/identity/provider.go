// Package identity owns the client's signed-in session: it persists it, refreshes the
// access token and tells subscribers when the user signs in or out.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"mealreview/internal/mealapi"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

var ErrNotSignedIn = errors.New("not signed in")

// TokenAPI is the server surface the provider needs.
type TokenAPI interface {
	RefreshToken(ctx context.Context, refreshToken string) (*mealapi.TokenPair, error)
	Logout(ctx context.Context, token string) error
}

type Provider struct {
	store  *FileStore
	api    TokenAPI
	logger *zap.Logger

	mu      sync.Mutex
	session *Session
	subs    map[int]func(*Session)
	nextSub int

	// refreshMu serialises refreshes; a refresh token is single use.
	refreshMu sync.Mutex
}

// NewProvider restores the saved session, if any.
func NewProvider(store *FileStore, api TokenAPI, logger *zap.Logger) (*Provider, error) {
	session, err := store.Load()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Provider{
		store:   store,
		api:     api,
		logger:  logger,
		session: session,
		subs:    map[int]func(*Session){},
	}, nil
}

// Current returns a copy of the session, or nil when signed out.
func (p *Provider) Current() *Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session.clone()
}

// Subscribe registers fn for sign-in and sign-out events. A nil session means signed out.
func (p *Provider) Subscribe(fn func(*Session)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *Provider) notify(session *Session) {
	p.mu.Lock()
	subs := make([]func(*Session), 0, len(p.subs))
	for _, fn := range p.subs {
		subs = append(subs, fn)
	}
	p.mu.Unlock()

	for _, fn := range subs {
		fn(session.clone())
	}
}

// SignIn adopts the tokens handed out by the OAuth callback.
func (p *Provider) SignIn(ctx context.Context, session *Session) error {
	if session == nil || session.RefreshToken == "" {
		return errors.New("sign in requires a refresh token")
	}
	if err := p.store.Save(session); err != nil {
		return err
	}
	p.mu.Lock()
	p.session = session.clone()
	p.mu.Unlock()

	p.logger.Debug("Signed in", zap.Int64("user_id", userID(session)))
	p.notify(session)
	return nil
}

// SignOut revokes the server session on a best-effort basis and forgets it locally.
func (p *Provider) SignOut(ctx context.Context) error {
	p.mu.Lock()
	session := p.session
	p.session = nil
	p.mu.Unlock()

	if session != nil && session.AccessToken != "" {
		if err := p.api.Logout(ctx, session.AccessToken); err != nil {
			p.logger.Warn("Server logout failed", zap.Error(err))
		}
	}
	if err := p.store.Clear(); err != nil {
		return err
	}
	p.notify(nil)
	return nil
}

// SetUser records a refreshed profile on the current session without notifying.
func (p *Provider) SetUser(user *mealapi.User) error {
	p.mu.Lock()
	if p.session == nil {
		p.mu.Unlock()
		return ErrNotSignedIn
	}
	u := *user
	p.session.User = &u
	snapshot := p.session.clone()
	p.mu.Unlock()
	return p.store.Save(snapshot)
}

// Token returns a valid access token, refreshing it through the server when expired.
func (p *Provider) Token(ctx context.Context) (string, error) {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	current := p.Current()
	if current == nil {
		return "", ErrNotSignedIn
	}

	src := oauth2.ReuseTokenSource(&oauth2.Token{
		AccessToken:  current.AccessToken,
		RefreshToken: current.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       current.Expiry,
	}, &refreshSource{ctx: ctx, api: p.api, refreshToken: current.RefreshToken})

	tok, err := src.Token()
	if err != nil {
		var apiErr *mealapi.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			p.logger.Info("Refresh token rejected, signing out")
			p.forget()
			return "", fmt.Errorf("%w: %w", ErrNotSignedIn, err)
		}
		return "", err
	}

	if tok.AccessToken != current.AccessToken {
		p.adopt(tok, current)
	}
	return tok.AccessToken, nil
}

func (p *Provider) adopt(tok *oauth2.Token, previous *Session) {
	next := previous.clone()
	next.AccessToken = tok.AccessToken
	next.RefreshToken = tok.RefreshToken
	next.Expiry = tok.Expiry
	if user, ok := tok.Extra("user").(*mealapi.User); ok && user != nil {
		next.User = user
	}

	p.mu.Lock()
	p.session = next
	p.mu.Unlock()

	if err := p.store.Save(next); err != nil {
		p.logger.Warn("Failed to persist refreshed session", zap.Error(err))
	}
}

func (p *Provider) forget() {
	p.mu.Lock()
	p.session = nil
	p.mu.Unlock()
	if err := p.store.Clear(); err != nil {
		p.logger.Warn("Failed to clear session", zap.Error(err))
	}
	p.notify(nil)
}

// refreshSource trades the refresh token for a new pair through the server.
type refreshSource struct {
	ctx          context.Context
	api          TokenAPI
	refreshToken string
}

func (s *refreshSource) Token() (*oauth2.Token, error) {
	if s.refreshToken == "" {
		return nil, ErrNotSignedIn
	}
	pair, err := s.api.RefreshToken(s.ctx, s.refreshToken)
	if err != nil {
		return nil, err
	}
	tok := &oauth2.Token{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		TokenType:    pair.TokenType,
		Expiry:       pair.ExpiresAt,
	}
	return tok.WithExtra(map[string]any{"user": pair.User}), nil
}

func userID(s *Session) int64 {
	if s == nil || s.User == nil {
		return 0
	}
	return s.User.ID
}
