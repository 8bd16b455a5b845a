package embedding

import "errors"

var (
	// ErrEmbedderRequired is returned when no embedder is provided.
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrNoLeaves is returned when the taxonomy contains no leaf nodes.
	ErrNoLeaves = errors.New("taxonomy has no leaf nodes")

	// ErrNotAvailable is returned when embeddings are requested but the
	// store is in unavailable mode.
	ErrNotAvailable = errors.New("embedding store is not available")

	// ErrDimensionMismatch is returned when a vector's dimensionality does
	// not match the stored matrix.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrMalformedCache is returned when cache bytes decode to an
	// impossible matrix shape.
	ErrMalformedCache = errors.New("malformed embedding cache data")

	// ErrInvalidMaxAttempts is returned when retry is configured with a
	// non-positive attempt count.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")
)
