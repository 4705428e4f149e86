package ports

import (
	"context"

	"github.com/csmather/better-recs/internal/core/domain"
)

// PlaylistResolver turns a playlist reference into the artists credited on its tracks.
// Unknown playlists must be reported with domain.ErrPlaylistNotFound in the chain.
type PlaylistResolver interface {
	ResolvePlaylistArtists(ctx context.Context, playlistID string) ([]domain.ArtistRef, error)
}

// PlaylistRefValidator is implemented by resolvers that can reject a malformed
// reference without a network call. Errors wrap domain.ErrInvalidInput.
type PlaylistRefValidator interface {
	ValidatePlaylistRef(ref string) error
}

// SimilarityProvider returns artists similar to the named artist, best match first.
type SimilarityProvider interface {
	LookupSimilar(ctx context.Context, artistName string) ([]domain.SimilarArtist, error)
}

// SimilarityCache stores lookup results by artist name.
type SimilarityCache interface {
	Get(ctx context.Context, artistName string) ([]domain.SimilarArtist, bool, error)
	Set(ctx context.Context, artistName string, similar []domain.SimilarArtist) error
}
