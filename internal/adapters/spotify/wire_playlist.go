package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/csmather/better-recs/internal/core/domain"
	"github.com/csmather/better-recs/internal/logging"
)

const (
	playlistPageSize = 100
	// 100 pages of 100 items covers Spotify's 10k-track playlist cap.
	maxPlaylistPages = 100
	playlistFields   = "items(track(id,is_local,artists(id,name))),next,total"
)

// ValidatePlaylistRef reports whether ref names a playlist, without calling Spotify.
func (c *Client) ValidatePlaylistRef(ref string) error {
	_, err := ParsePlaylistID(ref)
	return err
}

// ResolvePlaylistArtists returns every artist credited on the playlist's tracks, in
// playlist order. Unknown playlists yield domain.ErrPlaylistNotFound.
func (c *Client) ResolvePlaylistArtists(ctx context.Context, playlistRef string) ([]domain.ArtistRef, error) {
	playlistID, err := ParsePlaylistID(playlistRef)
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: %w", err)
	}

	// 1. First page URL, narrowed to the fields we map
	firstPage, err := url.Parse(fmt.Sprintf("%s/playlists/%s/tracks", c.baseURL, playlistID))
	if err != nil {
		return nil, fmt.Errorf("spotify adapter: invalid playlist url: %w", err)
	}
	query := firstPage.Query()
	query.Set("limit", fmt.Sprint(playlistPageSize))
	query.Set("fields", playlistFields)
	firstPage.RawQuery = query.Encode()

	// 2. Follow next links until exhausted
	var artists []domain.ArtistRef
	next := firstPage.String()
	for page := 0; next != "" && page < maxPlaylistPages; page++ {
		body, err := c.getPlaylistPage(ctx, playlistID, next)
		if err != nil {
			return nil, err
		}
		artists = append(artists, mapPageToArtists(body)...)
		next = body.Next
	}

	logging.Ctx(ctx).Debug().
		Str("playlist", playlistID).
		Int("artists", len(artists)).
		Msg("spotify adapter: playlist resolved")

	return artists, nil
}

func (c *Client) getPlaylistPage(ctx context.Context, playlistID, pageURL string) (playlistTracksPage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return playlistTracksPage{}, fmt.Errorf("spotify adapter: failed to create playlist request: %w", err)
	}

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return playlistTracksPage{}, fmt.Errorf("spotify adapter: playlist request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return playlistTracksPage{}, fmt.Errorf("spotify adapter: playlist %q: %w", playlistID, domain.ErrPlaylistNotFound)
	default:
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error.Message != "" {
			return playlistTracksPage{}, fmt.Errorf("spotify adapter: status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		return playlistTracksPage{}, fmt.Errorf("spotify adapter: status %d", resp.StatusCode)
	}

	var page playlistTracksPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return playlistTracksPage{}, fmt.Errorf("spotify adapter: playlist decode error: %w", err)
	}
	return page, nil
}
