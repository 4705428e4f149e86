package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/csmather/better-recs/internal/core/domain"
	"github.com/csmather/better-recs/internal/worker"
)

// --- Mocks ---

type mockResolver struct {
	playlists map[string][]domain.ArtistRef
	errs      map[string]error

	mu    sync.Mutex
	calls int
}

func (m *mockResolver) ResolvePlaylistArtists(ctx context.Context, playlistID string) ([]domain.ArtistRef, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if err, ok := m.errs[playlistID]; ok {
		return nil, err
	}
	return m.playlists[playlistID], nil
}

// validatingResolver rejects refs listed in malformed before any resolve call.
type validatingResolver struct {
	*mockResolver
	malformed map[string]bool
}

func (v validatingResolver) ValidatePlaylistRef(ref string) error {
	if v.malformed[ref] {
		return fmt.Errorf("%w: %q is not a playlist", domain.ErrInvalidInput, ref)
	}
	return nil
}

type mockProvider struct {
	similar map[string][]domain.SimilarArtist
	errs    map[string]error
	block   map[string]bool

	mu    sync.Mutex
	calls map[string]int
}

func (m *mockProvider) LookupSimilar(ctx context.Context, name string) ([]domain.SimilarArtist, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[name]++
	m.mu.Unlock()

	if m.block[name] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := m.errs[name]; ok {
		return nil, err
	}
	return m.similar[name], nil
}

func (m *mockProvider) totalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

type mockCache struct {
	entries map[string][]domain.SimilarArtist
	getErr  error
}

func (m *mockCache) Get(ctx context.Context, name string) ([]domain.SimilarArtist, bool, error) {
	if m.getErr != nil {
		return nil, false, m.getErr
	}
	v, ok := m.entries[name]
	return v, ok, nil
}

func (m *mockCache) Set(ctx context.Context, name string, similar []domain.SimilarArtist) error {
	return nil
}

type mockSubmitter struct {
	mu   sync.Mutex
	jobs []worker.Job
}

func (m *mockSubmitter) Submit(job worker.Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

func scenarioProvider() *mockProvider {
	return &mockProvider{similar: map[string][]domain.SimilarArtist{
		"A": {{Name: "X", MatchScore: 0.8}, {Name: "Y", MatchScore: 0.2}},
		"B": {{Name: "X", MatchScore: 0.6}},
	}}
}

func scenarioResolver() *mockResolver {
	return &mockResolver{playlists: map[string][]domain.ArtistRef{
		"pl-ab": {{ID: "a", Name: "A"}, {ID: "b", Name: "B"}},
		"pl-a":  {{ID: "a", Name: "A"}},
		"pl-b":  {{ID: "b", Name: "B"}},
		"empty": {},
	}}
}

func approx(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

// --- Tests ---

func TestRecommender_RecommendFromOne(t *testing.T) {
	tests := []struct {
		name      string
		provider  *mockProvider
		ref       domain.PlaylistRef
		wantNames []string
		wantFreq  []int
		wantScore []float64
		wantTotal int
		wantSeeds int
	}{
		{
			name:      "weighted aggregation across two seeds",
			provider:  scenarioProvider(),
			ref:       domain.NewPlaylistRef("pl-ab"),
			wantNames: []string{"X", "Y"},
			wantFreq:  []int{2, 1},
			wantScore: []float64{0.70, 0.10},
			wantTotal: 2,
			wantSeeds: 2,
		},
		{
			name: "failed lookup degrades to partial data",
			provider: &mockProvider{
				similar: scenarioProvider().similar,
				errs:    map[string]error{"B": errors.New("network down")},
			},
			ref:       domain.NewPlaylistRef("pl-ab"),
			wantNames: []string{"X", "Y"},
			wantFreq:  []int{1, 1},
			wantScore: []float64{0.40, 0.10},
			wantTotal: 2,
			wantSeeds: 2,
		},
		{
			name:      "playlist without artists yields empty result",
			provider:  scenarioProvider(),
			ref:       domain.NewPlaylistRef("empty"),
			wantNames: []string{},
			wantTotal: 0,
			wantSeeds: 0,
		},
		{
			name:      "all lookups empty yields empty result",
			provider:  &mockProvider{},
			ref:       domain.NewPlaylistRef("pl-ab"),
			wantNames: []string{},
			wantTotal: 0,
			wantSeeds: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRecommender(scenarioResolver(), tt.provider)

			got, err := r.RecommendFromOne(context.Background(), tt.ref, domain.Options{})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.TotalFound != tt.wantTotal {
				t.Errorf("TotalFound: got %d, want %d", got.TotalFound, tt.wantTotal)
			}
			if len(got.SeedArtists) != tt.wantSeeds {
				t.Errorf("SeedArtists: got %d, want %d", len(got.SeedArtists), tt.wantSeeds)
			}
			if len(got.Recommendations) != len(tt.wantNames) {
				t.Fatalf("Recommendations: got %+v, want names %v", got.Recommendations, tt.wantNames)
			}
			for i, rec := range got.Recommendations {
				if rec.Name != tt.wantNames[i] {
					t.Errorf("rec[%d].Name: got %q, want %q", i, rec.Name, tt.wantNames[i])
				}
				if rec.Frequency != tt.wantFreq[i] {
					t.Errorf("rec[%d].Frequency: got %d, want %d", i, rec.Frequency, tt.wantFreq[i])
				}
				if !approx(rec.CombinedScore, tt.wantScore[i]) {
					t.Errorf("rec[%d].CombinedScore: got %v, want %v", i, rec.CombinedScore, tt.wantScore[i])
				}
			}
		})
	}
}

func TestRecommender_RecommendFromMany(t *testing.T) {
	r := NewRecommender(scenarioResolver(), scenarioProvider())

	got, err := r.RecommendFromMany(context.Background(), []domain.PlaylistRef{
		domain.NewPlaylistRef("pl-a"),
		domain.NewPlaylistRef("pl-b"),
	}, domain.Options{Limit: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got.PlaylistWeights) != 2 {
		t.Fatalf("expected 2 playlist weights, got %d", len(got.PlaylistWeights))
	}
	for _, pw := range got.PlaylistWeights {
		if pw.Percent != 50 {
			t.Errorf("playlist %s: got %d%%, want 50%%", pw.PlaylistID, pw.Percent)
		}
	}
	if got.TotalFound != 2 {
		t.Errorf("TotalFound: got %d, want 2", got.TotalFound)
	}
	if len(got.Recommendations) != 1 || got.Recommendations[0].Name != "X" {
		t.Fatalf("expected only X after truncation, got %+v", got.Recommendations)
	}
	if !approx(got.Recommendations[0].CombinedScore, 0.70) {
		t.Errorf("X combined score: got %v, want 0.70", got.Recommendations[0].CombinedScore)
	}
}

func TestRecommender_WeightedPlaylists(t *testing.T) {
	r := NewRecommender(scenarioResolver(), scenarioProvider())

	got, err := r.RecommendFromMany(context.Background(), []domain.PlaylistRef{
		domain.NewWeightedPlaylistRef("pl-a", 75),
		domain.NewWeightedPlaylistRef("pl-b", 25),
	}, domain.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got.PlaylistWeights[0].Percent != 75 || got.PlaylistWeights[1].Percent != 25 {
		t.Fatalf("unexpected playlist weights: %+v", got.PlaylistWeights)
	}
	// X = 0.8*0.75 + 0.6*0.25
	if !approx(got.Recommendations[0].CombinedScore, 0.75) {
		t.Errorf("X combined score: got %v, want 0.75", got.Recommendations[0].CombinedScore)
	}
}

func TestRecommender_Errors(t *testing.T) {
	tests := []struct {
		name          string
		refs          []domain.PlaylistRef
		resolverErrs  map[string]error
		wantErr       []error
		wantResolverN int
	}{
		{
			name:          "empty playlist list is invalid input",
			refs:          nil,
			wantErr:       []error{domain.ErrInvalidInput},
			wantResolverN: 0,
		},
		{
			name:          "out of range weight is rejected before resolving",
			refs:          []domain.PlaylistRef{domain.NewPlaylistRef("pl-a"), domain.NewWeightedPlaylistRef("pl-b", 250)},
			wantErr:       []error{domain.ErrInvalidInput},
			wantResolverN: 0,
		},
		{
			name:          "unknown playlist is a resolution error",
			refs:          []domain.PlaylistRef{domain.NewPlaylistRef("missing")},
			resolverErrs:  map[string]error{"missing": domain.ErrPlaylistNotFound},
			wantErr:       []error{domain.ErrResolution, domain.ErrPlaylistNotFound},
			wantResolverN: 1,
		},
		{
			name:         "credential failure is a resolution error",
			refs:         []domain.PlaylistRef{domain.NewPlaylistRef("pl-a"), domain.NewPlaylistRef("pl-b")},
			resolverErrs: map[string]error{"pl-b": errors.New("token endpoint unavailable")},
			wantErr:      []error{domain.ErrResolution},
			// pl-a may or may not have been called before the failure
			wantResolverN: -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := scenarioResolver()
			resolver.errs = tt.resolverErrs
			provider := scenarioProvider()
			r := NewRecommender(resolver, provider)

			_, err := r.RecommendFromMany(context.Background(), tt.refs, domain.Options{})
			if err == nil {
				t.Fatalf("expected error")
			}
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("expected %v in chain, got %v", want, err)
				}
			}
			if tt.wantResolverN >= 0 && resolver.calls != tt.wantResolverN {
				t.Errorf("resolver calls: got %d, want %d", resolver.calls, tt.wantResolverN)
			}
			if provider.totalCalls() != 0 {
				t.Errorf("expected no similarity lookups, got %d", provider.totalCalls())
			}
		})
	}
}

func TestRecommender_MalformedRefRejectedBeforeResolving(t *testing.T) {
	resolver := validatingResolver{
		mockResolver: scenarioResolver(),
		malformed:    map[string]bool{"not a playlist": true},
	}
	provider := scenarioProvider()
	r := NewRecommender(resolver, provider)

	refs := []domain.PlaylistRef{
		domain.NewPlaylistRef("pl-a"),
		domain.NewPlaylistRef("pl-b"),
		domain.NewPlaylistRef("not a playlist"),
	}
	for run := 0; run < 20; run++ {
		_, err := r.RecommendFromMany(context.Background(), refs, domain.Options{})
		if !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("run %d: expected ErrInvalidInput, got %v", run, err)
		}
		if errors.Is(err, domain.ErrResolution) {
			t.Fatalf("run %d: malformed ref must not surface as a resolution error", run)
		}
	}
	if resolver.calls != 0 {
		t.Errorf("resolver calls: got %d, want 0", resolver.calls)
	}
	if provider.totalCalls() != 0 {
		t.Errorf("expected no similarity lookups, got %d", provider.totalCalls())
	}
}

func TestRecommender_OneLookupPerDistinctName(t *testing.T) {
	resolver := &mockResolver{playlists: map[string][]domain.ArtistRef{
		"pl": {{ID: "a1", Name: "A"}, {ID: "a2", Name: "a"}, {ID: "b", Name: "B"}},
	}}
	provider := scenarioProvider()
	r := NewRecommender(resolver, provider, WithConcurrency(2))

	got, err := r.RecommendFromOne(context.Background(), domain.NewPlaylistRef("pl"), domain.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.totalCalls() != 2 {
		t.Fatalf("expected 2 lookups, got %v", provider.calls)
	}
	// Both ids named A share the lookup, so X is surfaced by all three seeds.
	if got.Recommendations[0].Name != "X" || got.Recommendations[0].Frequency != 3 {
		t.Fatalf("unexpected top recommendation: %+v", got.Recommendations[0])
	}
}

func TestRecommender_LookupTimeoutDegrades(t *testing.T) {
	provider := scenarioProvider()
	provider.block = map[string]bool{"B": true}
	r := NewRecommender(scenarioResolver(), provider, WithLookupTimeout(20*time.Millisecond))

	start := time.Now()
	got, err := r.RecommendFromOne(context.Background(), domain.NewPlaylistRef("pl-ab"), domain.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("lookup timeout was not applied")
	}
	if got.Recommendations[0].Frequency != 1 || !approx(got.Recommendations[0].CombinedScore, 0.40) {
		t.Fatalf("expected only A's contribution, got %+v", got.Recommendations[0])
	}
}

func TestRecommender_Cache(t *testing.T) {
	provider := scenarioProvider()
	cache := &mockCache{entries: map[string][]domain.SimilarArtist{
		"A": {{Name: "Cached", MatchScore: 1}},
	}}
	submitter := &mockSubmitter{}
	r := NewRecommender(scenarioResolver(), provider, WithCache(cache, submitter))

	got, err := r.RecommendFromOne(context.Background(), domain.NewPlaylistRef("pl-ab"), domain.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.calls["A"] != 0 {
		t.Errorf("expected cache hit for A, provider called %d times", provider.calls["A"])
	}
	if provider.calls["B"] != 1 {
		t.Errorf("expected provider call for B, got %d", provider.calls["B"])
	}
	if len(submitter.jobs) != 1 || submitter.jobs[0].ArtistName != "B" {
		t.Errorf("expected one cache write for B, got %+v", submitter.jobs)
	}
	if got.Recommendations[0].Name != "Cached" {
		t.Errorf("expected cached candidate first, got %+v", got.Recommendations)
	}
}

func TestRecommender_CacheErrorFallsBackToProvider(t *testing.T) {
	provider := scenarioProvider()
	cache := &mockCache{getErr: errors.New("redis down")}
	r := NewRecommender(scenarioResolver(), provider, WithCache(cache, nil))

	got, err := r.RecommendFromOne(context.Background(), domain.NewPlaylistRef("pl-ab"), domain.Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.totalCalls() != 2 {
		t.Fatalf("expected provider to serve both lookups, got %d", provider.totalCalls())
	}
	if got.TotalFound != 2 {
		t.Fatalf("TotalFound: got %d, want 2", got.TotalFound)
	}
}
