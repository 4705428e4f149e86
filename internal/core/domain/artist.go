package domain

import (
	"strings"

	"golang.org/x/text/cases"
)

// ArtistRef is an artist as credited on a playlist track.
type ArtistRef struct {
	ID   string
	Name string
}

// SeedArtist is an artist drawn from the input playlists, with its normalized influence.
type SeedArtist struct {
	ID     string
	Name   string
	Weight float64
}

// Ref drops the weight, which is never exposed to callers.
func (s SeedArtist) Ref() ArtistRef {
	return ArtistRef{ID: s.ID, Name: s.Name}
}

// SimilarArtist is one raw result of a similarity lookup.
type SimilarArtist struct {
	Name       string  `json:"name"`
	MatchScore float64 `json:"match"`
}

// AggregatedArtist is a candidate after combining every seed's lookup.
type AggregatedArtist struct {
	Name          string
	Frequency     int
	AverageMatch  float64
	CombinedScore float64
}

// NameKey folds an artist name for case-insensitive comparison.
// A new Caser is built per call because Casers carry state.
func NameKey(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
