package spotify

import (
	"errors"
	"testing"

	"github.com/csmather/better-recs/internal/core/domain"
)

func TestParsePlaylistID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare id",
			input: "37i9dQZF1DXcBWIGoYBM5M",
			want:  "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:  "trims whitespace",
			input: "  37i9dQZF1DXcBWIGoYBM5M \n",
			want:  "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:  "spotify uri",
			input: "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			want:  "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:  "share link with tracking query",
			input: "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			want:  "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:  "share link with locale and no scheme",
			input: "open.spotify.com/intl-de/playlist/37i9dQZF1DXcBWIGoYBM5M",
			want:  "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:    "empty",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "album uri",
			input:   "spotify:album:4aawyAB9vmqN3uQ7FjRGTy",
			wantErr: true,
		},
		{
			name:    "foreign host",
			input:   "https://example.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			wantErr: true,
		},
		{
			name:    "host merely ending in spotify.com",
			input:   "https://notspotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			wantErr: true,
		},
		{
			name:    "spotify.com as a subdomain of another host",
			input:   "https://open.spotify.com.evil.example/playlist/37i9dQZF1DXcBWIGoYBM5M",
			wantErr: true,
		},
		{
			name:  "uppercase host",
			input: "https://OPEN.SPOTIFY.COM/playlist/37i9dQZF1DXcBWIGoYBM5M",
			want:  "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:    "path traversal characters",
			input:   "abc..def",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePlaylistID(tt.input)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Fatalf("expected ErrInvalidInput, got %v (id %q)", err, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("ParsePlaylistID: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestValidatePlaylistRef(t *testing.T) {
	c := &Client{}
	if err := c.ValidatePlaylistRef("spotify:playlist:37i9dQZF1DXcBWIGoYBM5M"); err != nil {
		t.Fatalf("valid uri rejected: %v", err)
	}
	if err := c.ValidatePlaylistRef("https://notspotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}
