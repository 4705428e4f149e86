// Package spotify resolves Spotify playlists to the artists credited on their tracks.
package spotify

import (
	"context"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/csmather/better-recs/internal/core/ports"
)

const (
	DefaultAPIURL   = "https://api.spotify.com/v1"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
)

// Config holds the credentials and tuning knobs of the Spotify client.
type Config struct {
	ClientID     string
	ClientSecret string
	APIURL       string
	TokenURL     string
	MaxRetries   int
	RetryBackoff time.Duration
	Timeout      time.Duration
}

// Client is an HTTP client for the Spotify Web API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	maxRetries  int
	baseBackoff time.Duration
}

// compile-time interface assertion
var (
	_ ports.PlaylistResolver     = (*Client)(nil)
	_ ports.PlaylistRefValidator = (*Client)(nil)
)

// NewClient constructs a client authenticated with the client-credentials flow.
// The access token is fetched lazily, reused by every request until it expires and
// refreshed on the first request after expiry.
func NewClient(cfg Config) *Client {
	tokenURL := cfg.TokenURL
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	cc := &clientcredentials.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenURL:     tokenURL,
	}

	httpClient := cc.Client(context.Background())
	httpClient.Timeout = cfg.Timeout

	c := NewClientWithBaseURL(httpClient, cfg.APIURL)
	c.maxRetries = cfg.MaxRetries
	c.baseBackoff = cfg.RetryBackoff
	return c
}

// NewClientWithBaseURL constructs a client around an already-authenticated http.Client.
func NewClientWithBaseURL(httpClient *http.Client, baseURL string) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}
