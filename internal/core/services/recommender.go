package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/csmather/better-recs/internal/core/domain"
	"github.com/csmather/better-recs/internal/core/ports"
	"github.com/csmather/better-recs/internal/logging"
	"github.com/csmather/better-recs/internal/metrics"
	"github.com/csmather/better-recs/internal/worker"
)

const (
	DefaultConcurrency   = 8
	DefaultLookupTimeout = 10 * time.Second
)

// jobSubmitter queues cache writes; *worker.Pool satisfies it.
type jobSubmitter interface {
	Submit(job worker.Job)
}

// Recommender coordinates playlist resolution, similarity lookups and ranking.
type Recommender struct {
	resolver  ports.PlaylistResolver
	validator ports.PlaylistRefValidator
	similar   ports.SimilarityProvider

	cache  ports.SimilarityCache
	writer jobSubmitter

	concurrency   int
	lookupTimeout time.Duration
}

// Option configures a Recommender.
type Option func(*Recommender)

// WithCache serves lookups from cache when possible and hands fresh results to writer.
// writer may be nil, in which case nothing is written back.
func WithCache(cache ports.SimilarityCache, writer jobSubmitter) Option {
	return func(r *Recommender) {
		r.cache = cache
		r.writer = writer
	}
}

// WithConcurrency bounds the number of in-flight collaborator calls per request.
func WithConcurrency(n int) Option {
	return func(r *Recommender) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLookupTimeout bounds a single similarity lookup. A lookup that runs out of time
// counts as degraded.
func WithLookupTimeout(d time.Duration) Option {
	return func(r *Recommender) {
		if d > 0 {
			r.lookupTimeout = d
		}
	}
}

// NewRecommender constructs a Recommender.
func NewRecommender(resolver ports.PlaylistResolver, similar ports.SimilarityProvider, opts ...Option) *Recommender {
	r := &Recommender{
		resolver:      resolver,
		similar:       similar,
		concurrency:   DefaultConcurrency,
		lookupTimeout: DefaultLookupTimeout,
	}
	if v, ok := resolver.(ports.PlaylistRefValidator); ok {
		r.validator = v
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SingleResult is the response of RecommendFromOne.
type SingleResult struct {
	SeedArtists     []domain.ArtistRef
	Recommendations []domain.AggregatedArtist
	TotalFound      int
}

// MultiResult is the response of RecommendFromMany.
type MultiResult struct {
	SeedArtists     []domain.ArtistRef
	PlaylistWeights []domain.PlaylistWeight
	Recommendations []domain.AggregatedArtist
	TotalFound      int
}

// RecommendFromOne ranks artists similar to those on a single playlist.
func (r *Recommender) RecommendFromOne(ctx context.Context, ref domain.PlaylistRef, opts domain.Options) (SingleResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecommendationDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())
	}()

	res, err := r.recommend(ctx, []domain.PlaylistRef{ref}, opts)
	if err != nil {
		return SingleResult{}, err
	}
	return SingleResult{
		SeedArtists:     res.SeedArtists,
		Recommendations: res.Recommendations,
		TotalFound:      res.TotalFound,
	}, nil
}

// RecommendFromMany ranks artists similar to those on several, optionally weighted, playlists.
func (r *Recommender) RecommendFromMany(ctx context.Context, refs []domain.PlaylistRef, opts domain.Options) (MultiResult, error) {
	start := time.Now()
	defer func() {
		metrics.RecommendationDuration.WithLabelValues("multi").Observe(time.Since(start).Seconds())
	}()

	return r.recommend(ctx, refs, opts)
}

func (r *Recommender) recommend(ctx context.Context, refs []domain.PlaylistRef, opts domain.Options) (MultiResult, error) {
	// 1. Validate before touching any collaborator
	weights, err := domain.NormalizePlaylistWeights(refs)
	if err != nil {
		return MultiResult{}, fmt.Errorf("service: %w", err)
	}
	if r.validator != nil {
		for _, ref := range refs {
			if err := r.validator.ValidatePlaylistRef(ref.ID); err != nil {
				return MultiResult{}, fmt.Errorf("service: %w", err)
			}
		}
	}
	opts = opts.WithDefaults()

	// 2. Resolve every playlist; any failure aborts the request
	artists, err := r.resolvePlaylists(ctx, refs)
	if err != nil {
		return MultiResult{}, fmt.Errorf("service: %w", err)
	}

	// 3. Weighted, deduplicated seeds
	seeds := domain.SeedList(domain.BuildSeeds(weights, artists))
	metrics.SeedArtists.Observe(float64(len(seeds)))

	// 4. Fan out; failed lookups come back empty
	results := r.fanOut(ctx, seeds)

	// 5. Aggregate and rank
	ranked, total := domain.Rank(domain.Aggregate(seeds, results), seeds, opts)

	seedRefs := make([]domain.ArtistRef, len(seeds))
	for i, s := range seeds {
		seedRefs[i] = s.Ref()
	}
	playlistWeights := make([]domain.PlaylistWeight, len(refs))
	for i, ref := range refs {
		playlistWeights[i] = domain.PlaylistWeight{PlaylistID: ref.ID, Percent: domain.DisplayPercent(weights[i])}
	}

	logging.Ctx(ctx).Info().
		Int("playlists", len(refs)).
		Int("seed_artists", len(seeds)).
		Int("total_found", total).
		Int("returned", len(ranked)).
		Msg("recommendations built")

	return MultiResult{
		SeedArtists:     seedRefs,
		PlaylistWeights: playlistWeights,
		Recommendations: ranked,
		TotalFound:      total,
	}, nil
}

func (r *Recommender) resolvePlaylists(ctx context.Context, refs []domain.PlaylistRef) ([][]domain.ArtistRef, error) {
	artists := make([][]domain.ArtistRef, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			list, err := r.resolver.ResolvePlaylistArtists(gctx, ref.ID)
			if err != nil {
				return &domain.ResolutionError{PlaylistID: ref.ID, Err: err}
			}
			artists[i] = list
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artists, nil
}

// fanOut issues one lookup per distinct seed name and maps the results back to seed ids.
// The group has no shared context, so one failure never cancels its siblings.
func (r *Recommender) fanOut(ctx context.Context, seeds []domain.SeedArtist) map[string][]domain.SimilarArtist {
	names := make(map[string]string)
	seedIDs := make(map[string][]string)
	for _, s := range seeds {
		key := domain.NameKey(s.Name)
		if _, ok := names[key]; !ok {
			names[key] = s.Name
		}
		seedIDs[key] = append(seedIDs[key], s.ID)
	}

	keys := make([]string, 0, len(names))
	for k := range names {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	found := make([][]domain.SimilarArtist, len(keys))
	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			found[i] = r.lookup(ctx, names[key])
			return nil
		})
	}
	_ = g.Wait()

	results := make(map[string][]domain.SimilarArtist, len(seeds))
	for i, key := range keys {
		for _, id := range seedIDs[key] {
			results[id] = found[i]
		}
	}
	return results
}

func (r *Recommender) lookup(ctx context.Context, name string) []domain.SimilarArtist {
	log := logging.Ctx(ctx)

	if r.cache != nil {
		cached, ok, err := r.cache.Get(ctx, name)
		switch {
		case err != nil:
			metrics.CacheErrors.WithLabelValues("get").Inc()
			log.Debug().Err(err).Str("artist", name).Msg("similarity cache read failed")
		case ok:
			metrics.SimilarityLookups.WithLabelValues(metrics.LookupCacheHit).Inc()
			return cached
		}
	}

	lctx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	similar, err := r.similar.LookupSimilar(lctx, name)
	if err != nil {
		metrics.SimilarityLookups.WithLabelValues(metrics.LookupDegraded).Inc()
		log.Warn().Err(err).Str("artist", name).Msg("similarity lookup degraded to empty result")
		return nil
	}
	metrics.SimilarityLookups.WithLabelValues(metrics.LookupFetched).Inc()

	if r.writer != nil {
		r.writer.Submit(worker.Job{ArtistName: name, Similar: similar})
	}
	return similar
}
