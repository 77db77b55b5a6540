package remote

import (
	"errors"
	"fmt"
)

// ServerError is the Drop server's structured error body.
type ServerError struct {
	StatusCode    int    `json:"statusCode"`
	StatusMessage string `json:"statusMessage"`
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server returned an invalid response: %d, %s", e.StatusCode, e.StatusMessage)
}

// ManifestError carries the raw body of a failed manifest fetch.
type ManifestError struct {
	Status int
	Body   string
}

func (e *ManifestError) Error() string {
	return fmt.Sprintf("failed to download game manifest: %d %s", e.Status, e.Body)
}

var (
	// ErrNotAuthenticated means no handshake has been completed yet.
	ErrNotAuthenticated = errors.New("client is not authenticated with a server")

	// ErrOutOfSync is returned when the server rejects the nonce timestamp.
	// Client and server clocks must be within the server's skew window.
	ErrOutOfSync = errors.New("server's and client's time are out of sync")

	// ErrInvalidEndpoint means the configured base URL could not be parsed.
	ErrInvalidEndpoint = errors.New("invalid drop endpoint")

	// ErrCacheMiss is returned by the object cache for unknown or unreadable
	// keys. Expired entries are still returned.
	ErrCacheMiss = errors.New("object not cached")
)

// GameNotFoundError identifies a game id the server does not know.
type GameNotFoundError struct {
	ID string
}

func (e *GameNotFoundError) Error() string {
	return fmt.Sprintf("could not find game on server: %s", e.ID)
}
