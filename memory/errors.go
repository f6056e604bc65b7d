package memory

import "errors"

var (
	// ErrEmbedderRequired indicates a Store was constructed without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
)
