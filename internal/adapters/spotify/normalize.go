package spotify

import (
	"fmt"
	"net/url"
	"strings"
	"unicode"

	"github.com/csmather/better-recs/internal/core/domain"
)

// ParsePlaylistID extracts the playlist id from a bare id, a spotify:playlist: URI
// or an open.spotify.com share link (query string and locale prefix ignored).
func ParsePlaylistID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty playlist reference", domain.ErrInvalidInput)
	}

	var id string
	switch {
	case strings.HasPrefix(ref, "spotify:"):
		parts := strings.Split(ref, ":")
		if len(parts) != 3 || parts[1] != "playlist" {
			return "", fmt.Errorf("%w: %q is not a playlist URI", domain.ErrInvalidInput, ref)
		}
		id = parts[2]
	case strings.Contains(ref, "/"):
		id = playlistIDFromURL(ref)
		if id == "" {
			return "", fmt.Errorf("%w: %q is not a playlist link", domain.ErrInvalidInput, ref)
		}
	default:
		id = ref
	}

	if !isBase62(id) {
		return "", fmt.Errorf("%w: %q is not a valid playlist id", domain.ErrInvalidInput, id)
	}
	return id, nil
}

func playlistIDFromURL(raw string) string {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	if host != "spotify.com" && !strings.HasSuffix(host, ".spotify.com") {
		return ""
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		if segments[i] == "playlist" {
			return segments[i+1]
		}
	}
	return ""
}

func isBase62(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r > unicode.MaxASCII || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			return false
		}
	}
	return true
}
