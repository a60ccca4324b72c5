package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"mealreview/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	// Context keys
	ContextKeyUser    = "auth_user"
	ContextKeySession = "auth_session"

	// Headers
	HeaderAuthorization = "Authorization"
)

type Middleware struct {
	repo         *Repository
	issuer       *TokenIssuer
	sessionStore *SessionStore
	logger       *zap.Logger
}

func NewMiddleware(repo *Repository, issuer *TokenIssuer, sessionStore *SessionStore, logger *zap.Logger) *Middleware {
	return &Middleware{
		repo:         repo,
		issuer:       issuer,
		sessionStore: sessionStore,
		logger:       logger,
	}
}

// bearerToken extracts the raw token from "Authorization: Bearer <token>".
func bearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader(HeaderAuthorization)
	if authHeader == "" {
		return "", errors.New("missing authorization header")
	}
	scheme, token, ok := strings.Cut(authHeader, " ")
	if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(token) == "" {
		return "", errors.New("invalid authorization header format")
	}
	return strings.TrimSpace(token), nil
}

// authenticate resolves the bearer token to an active user and its live session.
func (m *Middleware) authenticate(c *gin.Context) (*User, *Session, int, error) {
	raw, err := bearerToken(c)
	if err != nil {
		return nil, nil, http.StatusUnauthorized, err
	}

	claims, err := m.issuer.Verify(raw)
	if err != nil {
		return nil, nil, http.StatusUnauthorized, err
	}

	// Logged-out sessions invalidate their access tokens before expiry
	session, err := m.sessionStore.GetSession(c.Request.Context(), claims.SessionID)
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			m.logger.Error("Session lookup failed", zap.Error(err))
		}
		return nil, nil, http.StatusUnauthorized, ErrSessionNotFound
	}

	userID, err := claims.UserID()
	if err != nil || userID != session.UserID {
		return nil, nil, http.StatusUnauthorized, ErrInvalidToken
	}

	user, err := m.repo.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		m.logger.Error("User lookup failed", zap.Int64("user_id", userID), zap.Error(err))
		return nil, nil, http.StatusInternalServerError, errors.New("failed to load user")
	}
	if user == nil {
		return nil, nil, http.StatusUnauthorized, errors.New("user not found")
	}
	if user.Status != StatusActive {
		return nil, nil, http.StatusForbidden, fmt.Errorf("account is %s", user.Status)
	}
	return user, session, http.StatusOK, nil
}

func (m *Middleware) RequireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, session, status, err := m.authenticate(c)
		if err != nil {
			c.AbortWithStatusJSON(status, common.Error(err.Error()))
			return
		}

		c.Set(ContextKeyUser, user)
		c.Set(ContextKeySession, session)
		c.Next()
	}
}

func GetUserFromContext(c *gin.Context) *User {
	userVal, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil
	}
	user, ok := userVal.(*User)
	if !ok {
		return nil
	}
	return user
}

func GetSessionFromContext(c *gin.Context) *Session {
	sessionVal, exists := c.Get(ContextKeySession)
	if !exists {
		return nil
	}
	session, ok := sessionVal.(*Session)
	if !ok {
		return nil
	}
	return session
}
