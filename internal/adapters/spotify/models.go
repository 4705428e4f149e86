package spotify

// spotifyArtist is an artist object as embedded in a track.
type spotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// spotifyTrack carries only the fields requested through the fields filter.
type spotifyTrack struct {
	ID      string          `json:"id"`
	IsLocal bool            `json:"is_local"`
	Artists []spotifyArtist `json:"artists"`
}

// playlistTrackItem wraps a track; Track is null for removed or unavailable items.
type playlistTrackItem struct {
	Track *spotifyTrack `json:"track"`
}

// playlistTracksPage is one page of GET /playlists/{id}/tracks.
type playlistTracksPage struct {
	Items []playlistTrackItem `json:"items"`
	Next  string              `json:"next"`
	Total int                 `json:"total"`
}

// apiError is the error envelope returned by the Web API.
type apiError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}
