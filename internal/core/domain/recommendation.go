package domain

import (
	"sort"
)

const (
	DefaultLimit        = 20
	MaxLimit            = 100
	DefaultMinFrequency = 1
)

// Options controls filtering and truncation of the ranked list.
type Options struct {
	Limit        int
	MinFrequency int
}

// WithDefaults fills unset fields and clamps Limit to MaxLimit.
func (o Options) WithDefaults() Options {
	if o.Limit <= 0 {
		o.Limit = DefaultLimit
	} else if o.Limit > MaxLimit {
		o.Limit = MaxLimit
	}
	if o.MinFrequency <= 0 {
		o.MinFrequency = DefaultMinFrequency
	}
	return o
}

type accumulator struct {
	name     string
	freq     int
	sumMatch float64
	combined float64
	// best match contributed by lastSeed, so a seed counts once per candidate
	lastSeed  string
	seedMatch float64
}

// Aggregate folds every (seed, similar artist) pair into one entry per case-folded name.
// results is keyed by seed id. Seeds are visited in id order so repeated runs over the
// same input produce identical sums. A seed whose lookup lists a name more than once
// contributes to that candidate once, with its highest match score.
func Aggregate(seeds []SeedArtist, results map[string][]SimilarArtist) []AggregatedArtist {
	ordered := make([]SeedArtist, len(seeds))
	copy(ordered, seeds)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	byKey := make(map[string]*accumulator)
	var accs []*accumulator
	for _, seed := range ordered {
		for _, sim := range results[seed.ID] {
			key := NameKey(sim.Name)
			if key == "" {
				continue
			}
			acc, ok := byKey[key]
			if !ok {
				acc = &accumulator{name: sim.Name}
				byKey[key] = acc
				accs = append(accs, acc)
			}
			if ok && acc.lastSeed == seed.ID {
				if sim.MatchScore > acc.seedMatch {
					delta := sim.MatchScore - acc.seedMatch
					acc.sumMatch += delta
					acc.combined += delta * seed.Weight
					acc.seedMatch = sim.MatchScore
				}
				continue
			}
			acc.lastSeed = seed.ID
			acc.seedMatch = sim.MatchScore
			acc.freq++
			acc.sumMatch += sim.MatchScore
			acc.combined += sim.MatchScore * seed.Weight
		}
	}

	out := make([]AggregatedArtist, 0, len(accs))
	for _, acc := range accs {
		out = append(out, AggregatedArtist{
			Name:          acc.name,
			Frequency:     acc.freq,
			AverageMatch:  acc.sumMatch / float64(acc.freq),
			CombinedScore: acc.combined,
		})
	}
	return out
}

// Rank drops self-recommendations and candidates below MinFrequency, sorts the rest by
// CombinedScore and truncates to Limit. totalFound counts candidates before truncation.
// Ties fall back to Frequency, then to the folded name.
func Rank(aggregated []AggregatedArtist, seeds []SeedArtist, opts Options) ([]AggregatedArtist, int) {
	opts = opts.WithDefaults()

	seedNames := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		seedNames[NameKey(s.Name)] = struct{}{}
	}

	type keyed struct {
		key string
		AggregatedArtist
	}
	kept := make([]keyed, 0, len(aggregated))
	for _, a := range aggregated {
		key := NameKey(a.Name)
		if _, self := seedNames[key]; self {
			continue
		}
		if a.Frequency < opts.MinFrequency {
			continue
		}
		kept = append(kept, keyed{key: key, AggregatedArtist: a})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].CombinedScore != kept[j].CombinedScore {
			return kept[i].CombinedScore > kept[j].CombinedScore
		}
		if kept[i].Frequency != kept[j].Frequency {
			return kept[i].Frequency > kept[j].Frequency
		}
		return kept[i].key < kept[j].key
	})

	total := len(kept)
	if len(kept) > opts.Limit {
		kept = kept[:opts.Limit]
	}

	ranked := make([]AggregatedArtist, len(kept))
	for i, k := range kept {
		ranked[i] = k.AggregatedArtist
	}
	return ranked, total
}
