package domain

import (
	"math"
	"sort"
	"strings"
)

// MaxPlaylistWeight is the upper bound of a caller-supplied playlist weight.
const MaxPlaylistWeight = 100.0

// PlaylistRef identifies an input playlist and, optionally, its raw weight in [0,100].
type PlaylistRef struct {
	ID       string
	Weight   float64
	Weighted bool
}

// NewPlaylistRef returns an unweighted reference.
func NewPlaylistRef(id string) PlaylistRef {
	return PlaylistRef{ID: id}
}

// NewWeightedPlaylistRef returns a reference carrying an explicit raw weight.
func NewWeightedPlaylistRef(id string, weight float64) PlaylistRef {
	return PlaylistRef{ID: id, Weight: weight, Weighted: true}
}

// PlaylistWeight is the normalized influence of one input playlist, as a display percentage.
type PlaylistWeight struct {
	PlaylistID string
	Percent    int
}

// NormalizePlaylistWeights validates refs and returns one weight per ref, summing to 1.
// Refs without an explicit weight receive the equal share 100/N before normalization.
func NormalizePlaylistWeights(refs []PlaylistRef) ([]float64, error) {
	if len(refs) == 0 {
		return nil, invalidInput("at least one playlist is required")
	}

	equalShare := MaxPlaylistWeight / float64(len(refs))
	raw := make([]float64, len(refs))
	var sum float64
	for i, ref := range refs {
		if strings.TrimSpace(ref.ID) == "" {
			return nil, invalidInput("playlist %d has an empty id", i)
		}
		w := equalShare
		if ref.Weighted {
			if math.IsNaN(ref.Weight) || ref.Weight < 0 || ref.Weight > MaxPlaylistWeight {
				return nil, invalidInput("playlist %q weight %v is outside [0,100]", ref.ID, ref.Weight)
			}
			w = ref.Weight
		}
		raw[i] = w
		sum += w
	}

	if sum <= 0 {
		return nil, invalidInput("playlist weights sum to zero")
	}

	for i := range raw {
		raw[i] /= sum
	}
	return raw, nil
}

// BuildSeeds combines the artists of each playlist into weighted seed artists keyed by artist id.
// Each distinct artist of a playlist gets an equal slice of that playlist's weight, and an artist
// found in several playlists accumulates every slice. The result is rescaled to sum to 1.
func BuildSeeds(weights []float64, artists [][]ArtistRef) map[string]SeedArtist {
	seeds := make(map[string]SeedArtist)
	for i, list := range artists {
		if i >= len(weights) {
			break
		}

		distinct := make([]ArtistRef, 0, len(list))
		seen := make(map[string]struct{}, len(list))
		for _, a := range list {
			if a.ID == "" || strings.TrimSpace(a.Name) == "" {
				continue
			}
			if _, dup := seen[a.ID]; dup {
				continue
			}
			seen[a.ID] = struct{}{}
			distinct = append(distinct, a)
		}
		if len(distinct) == 0 {
			continue
		}

		share := weights[i] / float64(len(distinct))
		for _, a := range distinct {
			s, ok := seeds[a.ID]
			if !ok {
				s = SeedArtist{ID: a.ID, Name: a.Name}
			}
			s.Weight += share
			seeds[a.ID] = s
		}
	}

	var total float64
	for _, id := range sortedSeedIDs(seeds) {
		total += seeds[id].Weight
	}
	if total > 0 {
		for id, s := range seeds {
			s.Weight /= total
			seeds[id] = s
		}
	}
	return seeds
}

// SeedList returns the seeds ordered by id.
func SeedList(seeds map[string]SeedArtist) []SeedArtist {
	out := make([]SeedArtist, 0, len(seeds))
	for _, id := range sortedSeedIDs(seeds) {
		out = append(out, seeds[id])
	}
	return out
}

// DisplayPercent rounds a normalized weight to an integer percentage.
func DisplayPercent(w float64) int {
	return int(math.Round(w * 100))
}

func sortedSeedIDs(seeds map[string]SeedArtist) []string {
	ids := make([]string, 0, len(seeds))
	for id := range seeds {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
