// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mock implementations of ai.Embedder, ai.LocationExtractor,
// and ai.AIProvider for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic behavior.
//
// # Usage in Tests
//
//	mockProvider := mock.NewMockProvider()
//	vectors, err := mockProvider.Embedder().EmbedTexts(ctx, []string{"plumber"})
//
//	// Custom behavior injection
//	mockEmbedder := mock.NewMockEmbedder().
//	    WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
//	        return nil, errors.New("model offline")
//	    })
//
//	// Check call counts
//	count := mockEmbedder.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns bag-of-words vectors, so texts sharing words are similar
//   - MockLocationExtractor: Reports the configured places that occur in the text
//   - MockProvider: Aggregates mock embedder and extractor
//
// The mocks are safe for concurrent use.
package mock
