package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations used by a single worker need not be safe for concurrent use;
// the embedding orchestrator gives each worker its own instance.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// Returns ErrModelUnavailable or ErrEncodeFailure on failure.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice has the same length and order as texts.
	// Returns an error if any embedding generation fails; there are no partial results.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbedderFactory builds a fresh, fully initialized Embedder.
// It is called once per worker, so model load cost is paid up front.
type EmbedderFactory func() (Embedder, error)

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	// Embedder returns a shared embedder, suitable for query-time use.
	Embedder() Embedder

	// NewEmbedder creates an independent embedder instance. It satisfies
	// EmbedderFactory and is used to pre-warm worker pools.
	NewEmbedder() (Embedder, error)

	// Close releases resources held by the provider and its services.
	Close() error
}
