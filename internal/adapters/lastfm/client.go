// Package lastfm looks up similar artists through the Last.fm artist.getSimilar method.
package lastfm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/csmather/better-recs/internal/core/domain"
	"github.com/csmather/better-recs/internal/core/ports"
	"github.com/csmather/better-recs/internal/logging"
	"github.com/csmather/better-recs/internal/metrics"
)

const (
	DefaultAPIURL            = "https://ws.audioscrobbler.com/2.0/"
	DefaultSimilarLimit      = 50
	DefaultRequestsPerSecond = 5
	DefaultBreakerFailures   = 5
	DefaultBreakerTimeout    = 30 * time.Second
	DefaultTimeout           = 10 * time.Second

	breakerName = "lastfm"
	// Last.fm error code for an artist it does not know.
	codeInvalidParameters = 6
)

// ErrArtistNotFound reports that Last.fm has no entry for the requested name.
var ErrArtistNotFound = errors.New("lastfm: artist not found")

// Config holds the API key and the tuning knobs of the Last.fm client.
type Config struct {
	APIKey            string
	APIURL            string
	SimilarLimit      int
	RequestsPerSecond float64
	BreakerFailures   uint32
	BreakerTimeout    time.Duration
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// Client is a rate-limited, circuit-broken Last.fm API client.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limit      int
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]domain.SimilarArtist]
}

var _ ports.SimilarityProvider = (*Client)(nil)

func NewClient(cfg Config) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.SimilarLimit <= 0 {
		cfg.SimilarLimit = DefaultSimilarLimit
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = DefaultBreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = DefaultBreakerTimeout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	failures := cfg.BreakerFailures
	settings := gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Unknown artists and caller cancellation say nothing about Last.fm's health.
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, ErrArtistNotFound) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.CircuitBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("lastfm adapter: circuit breaker state changed")
		},
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    cfg.APIURL,
		apiKey:     cfg.APIKey,
		limit:      cfg.SimilarLimit,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker:    gobreaker.NewCircuitBreaker[[]domain.SimilarArtist](settings),
	}
}

// LookupSimilar returns up to the configured number of artists similar to artistName,
// best match first, with match scores clamped to [0, 1]. Requests are rejected with
// gobreaker.ErrOpenState while the breaker is open.
func (c *Client) LookupSimilar(ctx context.Context, artistName string) ([]domain.SimilarArtist, error) {
	artistName = strings.TrimSpace(artistName)
	if artistName == "" {
		return nil, fmt.Errorf("lastfm adapter: %w: empty artist name", domain.ErrInvalidInput)
	}

	// Limiter waits are not Last.fm failures and stay outside the breaker.
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("lastfm adapter: rate limiter: %w", err)
	}
	similar, err := c.breaker.Execute(func() ([]domain.SimilarArtist, error) {
		return c.getSimilar(ctx, artistName)
	})
	if err != nil {
		return nil, err
	}
	return similar, nil
}

func (c *Client) getSimilar(ctx context.Context, artistName string) ([]domain.SimilarArtist, error) {
	endpoint, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("lastfm adapter: invalid api url: %w", err)
	}
	query := endpoint.Query()
	query.Set("method", "artist.getsimilar")
	query.Set("artist", artistName)
	query.Set("api_key", c.apiKey)
	query.Set("format", "json")
	query.Set("autocorrect", "1")
	query.Set("limit", strconv.Itoa(c.limit))
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("lastfm adapter: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("lastfm adapter: request failed: %w", err)
	}
	defer resp.Body.Close()

	var parsed similarResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)

	// Last.fm reports API errors in the body, sometimes alongside a 200.
	if decodeErr == nil && parsed.Error != 0 {
		if parsed.Error == codeInvalidParameters {
			return nil, fmt.Errorf("lastfm adapter: %q: %w", artistName, ErrArtistNotFound)
		}
		return nil, fmt.Errorf("lastfm adapter: api error %d: %s", parsed.Error, parsed.Message)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("lastfm adapter: unexpected status %d", resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("lastfm adapter: decode response: %w", decodeErr)
	}

	return mapSimilar(parsed.SimilarArtists.Artist), nil
}

func mapSimilar(raw []similarArtist) []domain.SimilarArtist {
	out := make([]domain.SimilarArtist, 0, len(raw))
	for _, a := range raw {
		name := strings.TrimSpace(a.Name)
		if name == "" {
			continue
		}
		out = append(out, domain.SimilarArtist{Name: name, MatchScore: clamp01(float64(a.Match))})
	}
	return out
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
