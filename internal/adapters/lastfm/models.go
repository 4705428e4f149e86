package lastfm

import (
	"bytes"
	"strconv"

	"github.com/goccy/go-json"
)

// similarResponse is the artist.getSimilar payload. Error responses carry Error and
// Message instead of SimilarArtists.
type similarResponse struct {
	SimilarArtists struct {
		Artist []similarArtist `json:"artist"`
	} `json:"similarartists"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

type similarArtist struct {
	Name  string     `json:"name"`
	Match matchScore `json:"match"`
}

// matchScore accepts the match value either quoted ("0.83") or bare (0.83).
type matchScore float64

func (m *matchScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = 0
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*m = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}
		*m = matchScore(f)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*m = matchScore(f)
	return nil
}
