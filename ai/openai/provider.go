// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/poiesic/suggestit/ai"
)

// DefaultVectorCacheSize is how many text vectors a Provider remembers.
const DefaultVectorCacheSize = 50_000

// Provider implements ai.AIProvider using OpenAI-compatible services.
// Catalog names repeat across requests, so the provider remembers the
// vectors it has computed and only sends unseen texts upstream.
type Provider struct {
	embedder  ai.Embedder
	extractor *LocationExtractor
	vectors   *ristretto.Cache[string, []float32]
	logger    *slog.Logger
}

// ProviderOption configures a Provider.
type ProviderOption func(*providerOptions)

type providerOptions struct {
	vectorCacheSize int64
	logger          *slog.Logger
}

// WithVectorCache bounds the number of remembered vectors. Zero disables
// the cache.
func WithVectorCache(size int64) ProviderOption {
	return func(o *providerOptions) {
		o.vectorCacheSize = size
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(o *providerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewProvider creates a new AI provider with OpenAI-compatible services.
// The config is validated and normalized before use.
func NewProvider(config *ai.Config, opts ...ProviderOption) (ai.AIProvider, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	o := &providerOptions{vectorCacheSize: DefaultVectorCacheSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	embedder, err := newEmbedder(config)
	if err != nil {
		return nil, err
	}
	extractor, err := newLocationExtractor(config)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		embedder:  embedder,
		extractor: extractor,
		logger:    o.logger.With("component", "openai-provider"),
	}
	if o.vectorCacheSize > 0 {
		if p.vectors, err = newVectorCache(o.vectorCacheSize); err != nil {
			return nil, fmt.Errorf("create vector cache: %w", err)
		}
		p.embedder = &memoEmbedder{next: embedder, vectors: p.vectors}
	}
	return p, nil
}

func newVectorCache(size int64) (*ristretto.Cache[string, []float32], error) {
	return ristretto.NewCache(&ristretto.Config[string, []float32]{
		NumCounters: size * 10,
		MaxCost:     size,
		BufferItems: 64,
	})
}

// Embedder returns the text embedding service.
func (p *Provider) Embedder() ai.Embedder {
	return p.embedder
}

// LocationExtractor returns the location extraction service.
func (p *Provider) LocationExtractor() ai.LocationExtractor {
	return p.extractor
}

// Close releases the vector cache.
func (p *Provider) Close() error {
	p.logger.Debug("closing OpenAI provider")
	if p.vectors != nil {
		p.vectors.Close()
	}
	return nil
}

// memoEmbedder serves remembered vectors and embeds the rest in one batch.
type memoEmbedder struct {
	next    ai.Embedder
	vectors *ristretto.Cache[string, []float32]
}

func (m *memoEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (m *memoEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	slots := make(map[string][]int)
	for i, text := range texts {
		if v, ok := m.vectors.Get(text); ok {
			out[i] = v
			continue
		}
		if _, queued := slots[text]; !queued {
			missing = append(missing, text)
		}
		slots[text] = append(slots[text], i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	fresh, err := m.next.EmbedTexts(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(missing))
	}
	for i, text := range missing {
		for _, slot := range slots[text] {
			out[slot] = fresh[i]
		}
		m.vectors.Set(text, fresh[i], 1)
	}
	m.vectors.Wait()
	return out, nil
}
