package rest

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/csmather/better-recs/internal/core/domain"
	"github.com/csmather/better-recs/internal/validation"
)

const maxRequestBodyBytes = 64 << 10

// playlistInput is one entry of the playlists array: either a bare reference string
// or an object with an explicit weight.
type playlistInput struct {
	ID     string   `json:"id" validate:"required"`
	Weight *float64 `json:"weight" validate:"omitempty,min=0,max=100"`
}

func (p *playlistInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &p.ID)
	}
	type plain playlistInput
	var v plain
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("playlist must be a string or an object with id and weight: %w", err)
	}
	*p = playlistInput(v)
	return nil
}

func (p playlistInput) ref() domain.PlaylistRef {
	if p.Weight == nil {
		return domain.NewPlaylistRef(p.ID)
	}
	return domain.NewWeightedPlaylistRef(p.ID, *p.Weight)
}

type recommendRequest struct {
	Playlists    []playlistInput `json:"playlists" validate:"required,min=1,max=20,dive"`
	Limit        *int            `json:"limit" validate:"omitempty,min=1,max=100"`
	MinFrequency *int            `json:"minFrequency" validate:"omitempty,min=1"`
}

type queryOptions struct {
	Limit        *int `validate:"omitempty,min=1,max=100"`
	MinFrequency *int `validate:"omitempty,min=1"`
}

func (q queryOptions) options() domain.Options {
	var opts domain.Options
	if q.Limit != nil {
		opts.Limit = *q.Limit
	}
	if q.MinFrequency != nil {
		opts.MinFrequency = *q.MinFrequency
	}
	return opts
}

type artistResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type playlistWeightResponse struct {
	PlaylistID string `json:"playlistId"`
	Weight     int    `json:"weight"`
}

type recommendationResponse struct {
	Name          string  `json:"name"`
	Frequency     int     `json:"frequency"`
	AverageMatch  float64 `json:"averageMatch"`
	CombinedScore float64 `json:"combinedScore"`
}

type singleRecommendationResponse struct {
	SeedArtists     []artistResponse         `json:"seedArtists"`
	Recommendations []recommendationResponse `json:"recommendations"`
	TotalFound      int                      `json:"totalFound"`
}

type multiRecommendationResponse struct {
	SeedArtists     []artistResponse         `json:"seedArtists"`
	PlaylistWeights []playlistWeightResponse `json:"playlistWeights"`
	Recommendations []recommendationResponse `json:"recommendations"`
	TotalFound      int                      `json:"totalFound"`
}

// RecommendFromPlaylist handles GET /api/recommendations?playlist=<ref>&limit=&minFrequency=
func (h *Handler) RecommendFromPlaylist(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	playlist := query.Get("playlist")
	if playlist == "" {
		writeErrorWithCode(w, http.StatusBadRequest, "playlist is required", errCodeInvalidInput)
		return
	}

	var q queryOptions
	var err error
	if q.Limit, err = optionalInt(query.Get("limit")); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "limit must be an integer", errCodeInvalidInput)
		return
	}
	if q.MinFrequency, err = optionalInt(query.Get("minFrequency")); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "minFrequency must be an integer", errCodeInvalidInput)
		return
	}
	if err := validation.Struct(q); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidInput)
		return
	}

	res, err := h.svc.RecommendFromOne(r.Context(), domain.NewPlaylistRef(playlist), q.options())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, singleRecommendationResponse{
		SeedArtists:     toArtistResponses(res.SeedArtists),
		Recommendations: toRecommendationResponses(res.Recommendations),
		TotalFound:      res.TotalFound,
	})
}

// RecommendFromPlaylists handles POST /api/recommendations
func (h *Handler) RecommendFromPlaylists(w http.ResponseWriter, r *http.Request) {
	if !isJSONContentType(r) {
		writeError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}

	// 1. Decode the Request Body
	var req recommendRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes))
	if err := dec.Decode(&req); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, "Invalid request body", errCodeInvalidInput)
		return
	}

	// 2. Validate Input
	if err := validation.Struct(req); err != nil {
		writeErrorWithCode(w, http.StatusBadRequest, err.Error(), errCodeInvalidInput)
		return
	}

	refs := make([]domain.PlaylistRef, 0, len(req.Playlists))
	for _, p := range req.Playlists {
		refs = append(refs, p.ref())
	}
	opts := queryOptions{Limit: req.Limit, MinFrequency: req.MinFrequency}.options()

	// 3. Call the Service
	res, err := h.svc.RecommendFromMany(r.Context(), refs, opts)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	// 4. Return the Response
	writeJSON(w, http.StatusOK, multiRecommendationResponse{
		SeedArtists:     toArtistResponses(res.SeedArtists),
		PlaylistWeights: toPlaylistWeightResponses(res.PlaylistWeights),
		Recommendations: toRecommendationResponses(res.Recommendations),
		TotalFound:      res.TotalFound,
	})
}

func optionalInt(raw string) (*int, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func toArtistResponses(in []domain.ArtistRef) []artistResponse {
	out := make([]artistResponse, 0, len(in))
	for _, a := range in {
		out = append(out, artistResponse{ID: a.ID, Name: a.Name})
	}
	return out
}

func toPlaylistWeightResponses(in []domain.PlaylistWeight) []playlistWeightResponse {
	out := make([]playlistWeightResponse, 0, len(in))
	for _, pw := range in {
		out = append(out, playlistWeightResponse{PlaylistID: pw.PlaylistID, Weight: pw.Percent})
	}
	return out
}

func toRecommendationResponses(in []domain.AggregatedArtist) []recommendationResponse {
	out := make([]recommendationResponse, 0, len(in))
	for _, a := range in {
		out = append(out, recommendationResponse{
			Name:          a.Name,
			Frequency:     a.Frequency,
			AverageMatch:  a.AverageMatch,
			CombinedScore: a.CombinedScore,
		})
	}
	return out
}
