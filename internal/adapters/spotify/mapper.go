package spotify

import (
	"github.com/csmather/better-recs/internal/core/domain"
)

// mapPageToArtists flattens the credited artists of every playable track on a page.
// Removed tracks, local files and artists without an id are skipped; duplicates are
// left for the domain to collapse.
func mapPageToArtists(page playlistTracksPage) []domain.ArtistRef {
	artists := make([]domain.ArtistRef, 0, len(page.Items))
	for _, item := range page.Items {
		if item.Track == nil || item.Track.IsLocal {
			continue
		}
		for _, a := range item.Track.Artists {
			if a.ID == "" || a.Name == "" {
				continue
			}
			artists = append(artists, domain.ArtistRef{ID: a.ID, Name: a.Name})
		}
	}
	return artists
}
