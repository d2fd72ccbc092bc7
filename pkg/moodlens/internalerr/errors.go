package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// Scoring backend failures. Only ErrInvalidInput ever reaches Analyze callers;
	// the rest are recovered by the degradation path.
	ErrArtifactFetch    = errors.New("artifact fetch failed")
	ErrModelUnavailable = errors.New("model unavailable")
	ErrInferenceFailed  = errors.New("inference failed")
)
