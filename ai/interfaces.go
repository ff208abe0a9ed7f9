package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity scoring.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	// Identical input must produce identical output within one call.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// LocationExtractor finds place names mentioned in free text.
// Implementations must be thread-safe for concurrent use.
type LocationExtractor interface {
	// ExtractLocations returns the location entities found in text, first
	// mention first. Returns an empty slice if none are found.
	ExtractLocations(ctx context.Context, text string) ([]string, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder and LocationExtractor instances,
// ensuring they share configuration and resources appropriately.
type AIProvider interface {
	// Embedder returns the text embedding service.
	Embedder() Embedder

	// LocationExtractor returns the location entity extraction service.
	LocationExtractor() LocationExtractor

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
