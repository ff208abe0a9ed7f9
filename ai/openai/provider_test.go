package openai

import (
	"context"
	"errors"
	"testing"

	"github.com/poiesic/suggestit/ai"
	"github.com/poiesic/suggestit/ai/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemo(t *testing.T, next ai.Embedder) *memoEmbedder {
	t.Helper()
	vectors, err := newVectorCache(100)
	require.NoError(t, err)
	t.Cleanup(vectors.Close)
	return &memoEmbedder{next: next, vectors: vectors}
}

func TestMemoEmbedder(t *testing.T) {
	var batches [][]string
	inner := mock.NewMockEmbedder()
	inner.WithEmbedTextsFunc(func(_ context.Context, texts []string) ([][]float32, error) {
		batches = append(batches, append([]string(nil), texts...))
		out := make([][]float32, len(texts))
		for i, text := range texts {
			out[i] = []float32{float32(len(text))}
		}
		return out, nil
	})
	memo := newMemo(t, inner)
	ctx := context.Background()

	first, err := memo.EmbedTexts(ctx, []string{"plumber", "roofing", "plumber"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{7}, {7}, {7}}, first)
	assert.Equal(t, [][]string{{"plumber", "roofing"}}, batches)

	second, err := memo.EmbedTexts(ctx, []string{"roofing", "electrician"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{7}, {11}}, second)
	assert.Equal(t, []string{"electrician"}, batches[1])

	single, err := memo.EmbedText(ctx, "plumber")
	require.NoError(t, err)
	assert.Equal(t, []float32{7}, single)
	assert.Len(t, batches, 2)
}

func TestMemoEmbedderErrors(t *testing.T) {
	boom := errors.New("boom")
	inner := mock.NewMockEmbedder()
	inner.WithEmbedTextsFunc(func(context.Context, []string) ([][]float32, error) {
		return nil, boom
	})
	_, err := newMemo(t, inner).EmbedTexts(context.Background(), []string{"x"})
	assert.ErrorIs(t, err, boom)

	short := mock.NewMockEmbedder()
	short.WithEmbedTextsFunc(func(context.Context, []string) ([][]float32, error) {
		return [][]float32{{1}}, nil
	})
	_, err = newMemo(t, short).EmbedTexts(context.Background(), []string{"x", "y"})
	assert.Error(t, err)
}

func TestNewProvider(t *testing.T) {
	t.Run("vector cache on by default", func(t *testing.T) {
		p, err := NewProvider(ai.DefaultConfig())
		require.NoError(t, err)
		defer p.Close()
		assert.IsType(t, &memoEmbedder{}, p.Embedder())
		assert.NotNil(t, p.LocationExtractor())
	})

	t.Run("vector cache disabled", func(t *testing.T) {
		p, err := NewProvider(ai.DefaultConfig(), WithVectorCache(0))
		require.NoError(t, err)
		defer p.Close()
		assert.IsType(t, &Embedder{}, p.Embedder())
	})

	t.Run("invalid config", func(t *testing.T) {
		_, err := NewProvider(ai.NewConfig(ai.WithEmbeddingModel("")))
		assert.Error(t, err)
	})
}
