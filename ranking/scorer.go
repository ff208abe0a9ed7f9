package ranking

import (
	"context"
	"fmt"
	"math"

	"github.com/poiesic/suggestit/ai"
	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/lexical"
)

// LexicalScorer scores each tokenized corpus document against a tokenized query.
type LexicalScorer interface {
	Score(ctx context.Context, corpus [][]string, query []string) ([]float64, error)
}

// scores holds the per-candidate relevance signals.
type scores struct {
	semantic []float64
	lexical  []float64
	base     []float64
}

// scorer blends embedding similarity with lexical overlap.
type scorer struct {
	embedder ai.Embedder
	lexical  LexicalScorer
	weights  Weights
}

// score embeds [query] + texts in a single call and scores texts lexically.
// Any collaborator failure is reported as core.ErrUpstreamSignal.
func (s *scorer) score(ctx context.Context, query string, texts []string) (*scores, error) {
	if len(texts) == 0 {
		return &scores{}, nil
	}

	vectors, err := s.embedder.EmbedTexts(ctx, append([]string{query}, texts...))
	if err != nil {
		return nil, fmt.Errorf("%w: embed: %w", core.ErrUpstreamSignal, err)
	}
	if len(vectors) != len(texts)+1 {
		return nil, fmt.Errorf("%w: embed: got %d vectors for %d texts", core.ErrUpstreamSignal, len(vectors), len(texts)+1)
	}

	semantic := make([]float64, len(texts))
	for i := range texts {
		sim, err := cosine(vectors[0], vectors[i+1])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", core.ErrUpstreamSignal, err)
		}
		semantic[i] = sim
	}

	corpus := make([][]string, len(texts))
	for i, text := range texts {
		corpus[i] = lexical.Tokenize(text)
	}
	lex, err := s.lexical.Score(ctx, corpus, lexical.Tokenize(query))
	if err != nil {
		return nil, fmt.Errorf("%w: lexical: %w", core.ErrUpstreamSignal, err)
	}
	if len(lex) != len(texts) {
		return nil, fmt.Errorf("%w: lexical: got %d scores for %d texts", core.ErrUpstreamSignal, len(lex), len(texts))
	}

	base := make([]float64, len(texts))
	for i := range texts {
		base[i] = s.weights.Semantic*semantic[i] + s.weights.Lexical*lex[i]
	}
	return &scores{semantic: semantic, lexical: lex, base: base}, nil
}

// cosine returns the cosine similarity of a and b, or 0 if either is a zero vector.
func cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, len(a), len(b))
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb)), nil
}
