package mock

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
)

// MockLocationExtractor is a test double for ai.LocationExtractor.
// It allows custom behavior injection via function fields.
type MockLocationExtractor struct {
	mu sync.RWMutex

	// ExtractLocationsFunc is called by ExtractLocations if set.
	// If nil, the known places found in the text are returned.
	ExtractLocationsFunc func(ctx context.Context, text string) ([]string, error)

	places    []string
	callCount atomic.Int64
}

// NewMockLocationExtractor creates a mock extractor that recognizes places.
// Note: Returns concrete type to allow test assertions via GetMockExtractor().
func NewMockLocationExtractor(places ...string) *MockLocationExtractor {
	return &MockLocationExtractor{places: places}
}

// WithPlaces replaces the set of recognized places.
func (m *MockLocationExtractor) WithPlaces(places ...string) *MockLocationExtractor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.places = places
	return m
}

// WithExtractLocationsFunc sets custom behavior and returns the mock for chaining.
func (m *MockLocationExtractor) WithExtractLocationsFunc(fn func(ctx context.Context, text string) ([]string, error)) *MockLocationExtractor {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ExtractLocationsFunc = fn
	return m
}

// ExtractLocations returns the recognized places that occur in text, ordered
// by first occurrence.
func (m *MockLocationExtractor) ExtractLocations(ctx context.Context, text string) ([]string, error) {
	m.callCount.Add(1)

	m.mu.RLock()
	fn := m.ExtractLocationsFunc
	places := m.places
	m.mu.RUnlock()
	if fn != nil {
		return fn(ctx, text)
	}

	lower := strings.ToLower(text)
	type hit struct {
		name string
		at   int
	}
	hits := make([]hit, 0, len(places))
	for _, p := range places {
		if at := strings.Index(lower, strings.ToLower(p)); at >= 0 {
			hits = append(hits, hit{p, at})
		}
	}
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].at < hits[j-1].at; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.name
	}
	return out, nil
}

// CallCount returns the number of times ExtractLocations was called.
func (m *MockLocationExtractor) CallCount() int {
	return int(m.callCount.Load())
}

// Reset clears the call count and custom functions.
func (m *MockLocationExtractor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount.Store(0)
	m.ExtractLocationsFunc = nil
}
