package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks requests rejected before any collaborator is called.
var ErrInvalidInput = errors.New("domain: invalid input")

// ErrResolution matches every ResolutionError.
var ErrResolution = errors.New("domain: playlist resolution failed")

// ErrPlaylistNotFound is returned by resolvers for playlists that do not exist.
var ErrPlaylistNotFound = errors.New("domain: playlist not found")

// ResolutionError reports a playlist reference that could not be resolved to artists.
type ResolutionError struct {
	PlaylistID string
	Err        error
}

func (e *ResolutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("could not resolve playlist %q", e.PlaylistID)
	}
	return fmt.Sprintf("could not resolve playlist %q: %v", e.PlaylistID, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func (e *ResolutionError) Is(target error) bool {
	return target == ErrResolution
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
