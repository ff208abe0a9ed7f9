package mock

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestMockEmbedderDefault(t *testing.T) {
	m := NewMockEmbedder()
	vectors, err := m.EmbedTexts(context.Background(), []string{"emergency plumber", "Emergency Plumber", "wedding cake"})
	require.NoError(t, err)
	require.Len(t, vectors, 3)

	assert.Len(t, vectors[0], Dimensions)
	assert.InDelta(t, 1.0, cosine(vectors[0], vectors[1]), 1e-6)
	assert.InDelta(t, 1.0, math.Sqrt(cosine(vectors[2], vectors[2])), 1e-6)
	assert.Equal(t, 1, m.CallCount())

	empty, err := m.EmbedText(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, cosine(empty, empty))
	assert.Equal(t, 2, m.CallCount())

	m.Reset()
	assert.Equal(t, 0, m.CallCount())
}

func TestMockLocationExtractor(t *testing.T) {
	m := NewMockLocationExtractor("Austin", "Round Rock")

	got, err := m.ExtractLocations(context.Background(), "plumber round rock or austin")
	require.NoError(t, err)
	assert.Equal(t, []string{"Round Rock", "Austin"}, got)

	got, err = m.ExtractLocations(context.Background(), "plumber near me")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 2, m.CallCount())
}

func TestMockProvider(t *testing.T) {
	p := NewMockProvider().(*MockProvider)
	_, err := p.Embedder().EmbedText(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, 1, p.GetMockEmbedder().CallCount())
	assert.Equal(t, 0, p.GetMockExtractor().CallCount())
	assert.NoError(t, p.Close())
}
