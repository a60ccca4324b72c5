package auth

import (
	"errors"
	"net/http"

	"mealreview/internal/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	OAuthStateCookieName = "mealreview_oauth_state"
)

type Handler struct {
	repo         *Repository
	oauthConfig  *OAuthConfig
	stateStore   *OAuthStateStore
	sessionStore *SessionStore
	issuer       *TokenIssuer
	secureCookie bool
	logger       *zap.Logger
}

func NewHandler(
	repo *Repository,
	oauthConfig *OAuthConfig,
	stateStore *OAuthStateStore,
	sessionStore *SessionStore,
	issuer *TokenIssuer,
	secureCookie bool,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		repo:         repo,
		oauthConfig:  oauthConfig,
		stateStore:   stateStore,
		sessionStore: sessionStore,
		issuer:       issuer,
		secureCookie: secureCookie,
		logger:       logger,
	}
}

func (h *Handler) Login(c *gin.Context) {
	provider := Provider(c.Param("provider"))

	// Validate provider
	if provider != ProviderGoogle && provider != ProviderGitHub {
		c.JSON(http.StatusBadRequest, common.Error("unsupported provider"))
		return
	}
	if !h.oauthConfig.IsProviderConfigured(provider) {
		c.JSON(http.StatusBadRequest, common.Error("provider not configured"))
		return
	}

	// Generate state for CSRF protection
	state, err := h.stateStore.CreateState(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to create OAuth state", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to create auth state"))
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(OAuthStateCookieName, state, int(OAuthStateExpiry.Seconds()), "/", "", h.secureCookie, true)

	authURL, err := h.oauthConfig.GetAuthURL(provider, state)
	if err != nil {
		c.JSON(http.StatusInternalServerError, common.Error("failed to create auth URL"))
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, authURL)
}

// Callback completes the OAuth dance and answers with a token pair for the client to keep.
func (h *Handler) Callback(c *gin.Context) {
	provider := Provider(c.Param("provider"))
	if provider != ProviderGoogle && provider != ProviderGitHub {
		c.JSON(http.StatusBadRequest, common.Error("unsupported provider"))
		return
	}

	queryState := c.Query("state")
	cookieState, err := c.Cookie(OAuthStateCookieName)
	if err != nil || cookieState == "" {
		c.JSON(http.StatusBadRequest, common.Error("missing OAuth state cookie"))
		return
	}
	if queryState != cookieState {
		c.JSON(http.StatusBadRequest, common.Error("OAuth state mismatch"))
		return
	}

	ctx := c.Request.Context()
	valid, err := h.stateStore.ValidateState(ctx, queryState)
	if err != nil || !valid {
		c.JSON(http.StatusBadRequest, common.Error("invalid or expired OAuth state"))
		return
	}
	c.SetCookie(OAuthStateCookieName, "", -1, "/", "", h.secureCookie, true)

	if errMsg := c.Query("error"); errMsg != "" {
		c.JSON(http.StatusBadRequest, common.Error("OAuth error: "+errMsg))
		return
	}
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, common.Error("missing authorization code"))
		return
	}

	token, err := h.oauthConfig.ExchangeCode(ctx, provider, code)
	if err != nil {
		h.logger.Warn("OAuth code exchange failed", zap.String("provider", string(provider)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to exchange code"))
		return
	}

	userInfo, err := h.oauthConfig.GetUserInfo(ctx, provider, token)
	if err != nil {
		h.logger.Warn("OAuth user info failed", zap.String("provider", string(provider)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to get user info"))
		return
	}

	user, err := h.findOrCreateUser(c, userInfo, provider, token.AccessToken, token.RefreshToken)
	if err != nil {
		h.logger.Error("Failed to create user", zap.String("email", userInfo.Email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to create user"))
		return
	}
	if user.Status != StatusActive {
		c.JSON(http.StatusForbidden, common.Error("account is "+string(user.Status)))
		return
	}

	session, refreshToken, err := h.sessionStore.CreateSession(ctx, user.ID)
	if err != nil {
		h.logger.Error("Failed to create session", zap.Int64("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to create session"))
		return
	}

	h.respondWithTokens(c, user, session, refreshToken)
}

func (h *Handler) findOrCreateUser(c *gin.Context, info *OAuthUserInfo, provider Provider, accessToken, refreshToken string) (*User, error) {
	ctx := c.Request.Context()

	identity, err := h.repo.GetOAuthIdentity(ctx, provider, info.ProviderID)
	if err != nil {
		return nil, err
	}
	if identity != nil {
		if err := h.repo.UpdateOAuthIdentityTokens(ctx, identity.ID, accessToken, refreshToken); err != nil {
			return nil, err
		}
		return h.repo.GetUserByID(ctx, identity.UserID)
	}

	// Link a new provider to an existing account with the same email
	user, err := h.repo.GetUserByEmail(ctx, info.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		user, err = h.repo.CreateUser(ctx, info.Email, info.DisplayName)
		if err != nil {
			return nil, err
		}
	}

	if err := h.repo.CreateOAuthIdentity(ctx, user.ID, provider, info.ProviderID, accessToken, refreshToken); err != nil {
		return nil, err
	}
	return h.repo.GetUserByID(ctx, user.ID)
}

func (h *Handler) respondWithTokens(c *gin.Context, user *User, session *Session, refreshToken string) {
	accessToken, expiresAt, err := h.issuer.Issue(user, session.ID)
	if err != nil {
		h.logger.Error("Failed to sign access token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to issue token"))
		return
	}
	c.JSON(http.StatusOK, common.CreateSuccessResponse(TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresAt:    expiresAt,
		User:         user,
	}))
}

// Refresh rotates the refresh token and issues a new access token.
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.Error(err.Error()))
		return
	}

	ctx := c.Request.Context()
	session, refreshToken, err := h.sessionStore.Rotate(ctx, req.RefreshToken)
	if errors.Is(err, ErrSessionNotFound) {
		c.JSON(http.StatusUnauthorized, common.Error(err.Error()))
		return
	}
	if err != nil {
		h.logger.Error("Failed to rotate refresh token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to refresh session"))
		return
	}

	user, err := h.repo.GetUserByID(ctx, session.UserID)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, common.Error("user not found"))
		return
	}
	if user.Status != StatusActive {
		c.JSON(http.StatusForbidden, common.Error("account is "+string(user.Status)))
		return
	}

	h.respondWithTokens(c, user, session, refreshToken)
}

func (h *Handler) Me(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, common.Error("not authenticated"))
		return
	}
	c.JSON(http.StatusOK, common.CreateSuccessResponse(user))
}

// Logout ends the caller's session, or every session of the caller with ?all=true.
func (h *Handler) Logout(c *gin.Context) {
	ctx := c.Request.Context()
	if c.Query("all") == "true" {
		if user := GetUserFromContext(c); user != nil {
			if err := h.sessionStore.DeleteUserSessions(ctx, user.ID); err != nil {
				h.logger.Error("Failed to delete user sessions", zap.Int64("user_id", user.ID), zap.Error(err))
				c.JSON(http.StatusInternalServerError, common.Error("failed to log out"))
				return
			}
		}
	} else if session := GetSessionFromContext(c); session != nil {
		if err := h.sessionStore.DeleteSession(ctx, session.ID); err != nil {
			h.logger.Error("Failed to delete session", zap.Error(err))
			c.JSON(http.StatusInternalServerError, common.Error("failed to log out"))
			return
		}
	}
	c.JSON(http.StatusOK, common.CreateSuccessResponse(gin.H{
		"message": "logged out successfully",
	}))
}

// UpdateSchool stores the caller's home school and returns the updated profile.
func (h *Handler) UpdateSchool(c *gin.Context) {
	user := GetUserFromContext(c)
	if user == nil {
		c.JSON(http.StatusUnauthorized, common.Error("not authenticated"))
		return
	}

	var req SchoolUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, common.Error(err.Error()))
		return
	}

	updated, err := h.repo.UpdateUserSchool(c.Request.Context(), user.ID, req.SchoolCode, req.OfficeCode, req.SchoolName)
	if err != nil {
		h.logger.Error("Failed to update school", zap.Int64("user_id", user.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, common.Error("failed to update school"))
		return
	}
	c.JSON(http.StatusOK, common.CreateSuccessResponse(updated))
}
