package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Authentication errors
	ErrAuthFailed       = fmt.Errorf("authentication failed")
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrTokenExpired     = fmt.Errorf("access token expired")

	// Adapter errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrVideoNotFound      = fmt.Errorf("video not found")
	ErrProcess            = fmt.Errorf("conversion process failed")
	ErrTimeout            = fmt.Errorf("operation timed out")
	ErrIO                 = fmt.Errorf("file operation failed")
	ErrCancelled          = fmt.Errorf("cancelled")

	// Catalog errors. Never shown to the user.
	ErrStaleRequest = fmt.Errorf("superseded by a newer request")

	// Queue errors
	ErrAlreadyQueued      = fmt.Errorf("track already in queue")
	ErrTrackNotFound      = fmt.Errorf("track not found")
	ErrInvalidPermutation = fmt.Errorf("order is not a permutation of the queue")

	// Export preconditions
	ErrEmptyQueue       = fmt.Errorf("queue is empty")
	ErrNoExportDir      = fmt.Errorf("no export directory selected")
	ErrExportInProgress = fmt.Errorf("an export is already running")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
