package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

const (
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
	githubUserURL     = "https://api.github.com/user"
	githubEmailsURL   = "https://api.github.com/user/emails"
)

type OAuthUserInfo struct {
	ProviderID  string
	Email       string
	DisplayName string
}

type ProviderConfig struct {
	ClientID     string
	ClientSecret string
}

// userInfoFunc resolves the signed-in account through the provider's own API.
type userInfoFunc func(ctx context.Context, client *http.Client) (*OAuthUserInfo, error)

type oauthProvider struct {
	config   *oauth2.Config
	userInfo userInfoFunc
}

// OAuthConfig holds the configured identity providers. Providers without credentials are absent.
type OAuthConfig struct {
	providers map[Provider]*oauthProvider
}

func NewOAuthConfig(googleCfg, githubCfg ProviderConfig, callbackBaseURL string) *OAuthConfig {
	c := &OAuthConfig{providers: map[Provider]*oauthProvider{}}

	if googleCfg.ClientID != "" && googleCfg.ClientSecret != "" {
		c.providers[ProviderGoogle] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     googleCfg.ClientID,
				ClientSecret: googleCfg.ClientSecret,
				RedirectURL:  callbackBaseURL + "/api/auth/callback/google",
				Scopes: []string{
					"https://www.googleapis.com/auth/userinfo.email",
					"https://www.googleapis.com/auth/userinfo.profile",
				},
				Endpoint: google.Endpoint,
			},
			userInfo: googleUserInfo,
		}
	}

	if githubCfg.ClientID != "" && githubCfg.ClientSecret != "" {
		c.providers[ProviderGitHub] = &oauthProvider{
			config: &oauth2.Config{
				ClientID:     githubCfg.ClientID,
				ClientSecret: githubCfg.ClientSecret,
				RedirectURL:  callbackBaseURL + "/api/auth/callback/github",
				Scopes:       []string{"user:email", "read:user"},
				Endpoint:     github.Endpoint,
			},
			userInfo: githubUserInfo,
		}
	}

	return c
}

func (c *OAuthConfig) IsProviderConfigured(provider Provider) bool {
	_, ok := c.providers[provider]
	return ok
}

func (c *OAuthConfig) provider(provider Provider) (*oauthProvider, error) {
	p, ok := c.providers[provider]
	if !ok {
		return nil, fmt.Errorf("%s OAuth not configured", provider)
	}
	return p, nil
}

// GetAuthURL asks for consent every time so the provider hands back a refresh token.
func (c *OAuthConfig) GetAuthURL(provider Provider, state string) (string, error) {
	p, err := c.provider(provider)
	if err != nil {
		return "", err
	}
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent")), nil
}

func (c *OAuthConfig) ExchangeCode(ctx context.Context, provider Provider, code string) (*oauth2.Token, error) {
	p, err := c.provider(provider)
	if err != nil {
		return nil, err
	}
	return p.config.Exchange(ctx, code)
}

func (c *OAuthConfig) GetUserInfo(ctx context.Context, provider Provider, token *oauth2.Token) (*OAuthUserInfo, error) {
	p, err := c.provider(provider)
	if err != nil {
		return nil, err
	}
	return p.userInfo(ctx, p.config.Client(ctx, token))
}

func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", url, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type googleAccount struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
}

func googleUserInfo(ctx context.Context, client *http.Client) (*OAuthUserInfo, error) {
	var info googleAccount
	if err := getJSON(ctx, client, googleUserInfoURL, &info); err != nil {
		return nil, fmt.Errorf("google API error: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("email not provided by Google")
	}
	return &OAuthUserInfo{
		ProviderID:  info.ID,
		Email:       info.Email,
		DisplayName: displayName(info.Name, info.Email),
	}, nil
}

type githubAccount struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func githubUserInfo(ctx context.Context, client *http.Client) (*OAuthUserInfo, error) {
	var info githubAccount
	if err := getJSON(ctx, client, githubUserURL, &info); err != nil {
		return nil, fmt.Errorf("github API error: %w", err)
	}

	email := info.Email
	if email == "" {
		var emails []githubEmail
		if err := getJSON(ctx, client, githubEmailsURL, &emails); err != nil {
			return nil, fmt.Errorf("github emails API error: %w", err)
		}
		email = primaryEmail(emails)
		if email == "" {
			return nil, fmt.Errorf("no verified email found")
		}
	}

	name := info.Name
	if name == "" {
		name = info.Login
	}
	return &OAuthUserInfo{
		ProviderID:  strconv.FormatInt(info.ID, 10),
		Email:       email,
		DisplayName: displayName(name, email),
	}, nil
}

// primaryEmail prefers the primary verified address, then any verified one.
func primaryEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

// displayName falls back to the local part of the email address.
func displayName(name, email string) string {
	if name != "" {
		return name
	}
	for i := 0; i < len(email); i++ {
		if email[i] == '@' {
			return email[:i]
		}
	}
	return email
}
