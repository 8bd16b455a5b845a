package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// TextGenerator produces free-form completions from a prompt. It is used for
// search query synthesis and for clarifying-question generation; callers
// treat the model as untrusted and validate everything it returns.
// Implementations must be thread-safe for concurrent use.
type TextGenerator interface {
	// Complete generates a completion for the prompt, bounded by maxTokens.
	// The returned text is raw model output with no post-processing beyond
	// whitespace trimming. Returns an error if generation fails or the
	// backing service is unreachable.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and TextGenerator instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Generator returns the text generation service.
	// The returned TextGenerator is safe for concurrent use.
	Generator() TextGenerator

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
