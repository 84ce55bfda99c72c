// Package identity talks to the OAuth identity provider: one round-trip to
// exchange an authorization code for a provider token, one to fetch the
// authenticated user's profile. Neither call is retried; failures surface to
// the caller immediately.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"
)

// Provider failures, matched with errors.Is. The wrapped detail carries the
// provider's status and body for diagnostics.
var (
	ErrExchangeFailed     = errors.New("authorization code exchange failed")
	ErrProfileFetchFailed = errors.New("profile fetch failed")
)

// Config describes the identity provider endpoints and client credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
}

// Profile is the provider's view of the authenticated user. Field names
// follow GitHub's user-info payload, the default provider.
type Profile struct {
	Username  string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Email     string `json:"email"`
}

// Client exchanges authorization codes and fetches profiles.
type Client struct {
	cfg          Config
	oauth2Config *oauth2.Config
}

// NewClient validates the provider config and builds a client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client_id is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client_secret is required")
	}
	if cfg.AuthURL == "" || cfg.TokenURL == "" || cfg.UserInfoURL == "" {
		return nil, fmt.Errorf("auth_url, token_url and user_info_url are required")
	}

	return &Client{
		cfg: cfg,
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
			RedirectURL: cfg.RedirectURL,
		},
	}, nil
}

// AuthCodeURL returns the provider authorization URL. The state value is
// opaque here; the provider echoes it back unmodified on callback.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth2Config.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for a provider access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	return token, nil
}

// FetchProfile retrieves the authenticated user's profile with the provider
// token obtained from ExchangeCode.
func (c *Client) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	client := c.oauth2Config.Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProfileFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: status %d: %s", ErrProfileFetchFailed, resp.StatusCode, string(body))
	}

	var profile Profile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: decode user info: %v", ErrProfileFetchFailed, err)
	}
	if profile.Username == "" {
		return nil, fmt.Errorf("%w: missing username in user info", ErrProfileFetchFailed)
	}
	return &profile, nil
}
