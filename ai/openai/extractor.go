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
	"encoding/json"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/poiesic/suggestit/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// LocationExtractor implements ai.LocationExtractor using OpenAI-compatible chat APIs.
type LocationExtractor struct {
	client  llms.Model
	timeout time.Duration
	logger  *slog.Logger
}

// place is an internal type used for JSON unmarshaling.
type place struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

// extraction is the wrapper structure for the LLM's JSON response.
type extraction struct {
	Locations []place `json:"locations"`
}

// newLocationExtractor is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newLocationExtractor(config *ai.Config) (*LocationExtractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExtractorHost),
		openai.WithToken(config.Token),
		openai.WithModel(config.ExtractorModel),
	)
	if err != nil {
		return nil, err
	}

	return &LocationExtractor{
		client:  client,
		timeout: config.Timeout,
		logger:  slog.Default().With("component", "openai-extractor"),
	}, nil
}

// NewLocationExtractor creates a new location extractor using the provided configuration.
//
// Returns ai.LocationExtractor interface to enforce abstraction.
func NewLocationExtractor(config *ai.Config) (ai.LocationExtractor, error) {
	return newLocationExtractor(config)
}

// ExtractLocations asks the model for the places mentioned in text.
func (e *LocationExtractor) ExtractLocations(ctx context.Context, text string) ([]string, error) {
	text = scrubString(text)
	if text == "" {
		return []string{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt())},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(text)},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result extraction
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}

		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return []string{}, nil
		}

		result, err = parseExtraction(response.Choices[0].Content)
		if err != nil {
			lastErr = err
			e.logger.Warn("error parsing extractor response",
				"attempt", attempt+1,
				"response", response.Choices[0].Content,
				"err", err)
			continue
		}

		lastErr = nil
		break
	}

	if lastErr != nil {
		e.logger.Error("failed to parse extractor response after retries", "err", lastErr)
		return nil, lastErr
	}

	locations := result.names()
	e.logger.Debug("extracted locations", "total", len(result.Locations), "kept", len(locations))
	return locations, nil
}

// parseExtraction strips code fences, repairs and decodes a model response.
func parseExtraction(raw string) (extraction, error) {
	text := repairJSON(stripFences(raw))

	var result extraction
	err := json.Unmarshal([]byte(text), &result)
	return result, err
}

// names keeps entries with a location label, in mention order, without duplicates.
func (x extraction) names() []string {
	out := make([]string, 0, len(x.Locations))
	seen := make(map[string]struct{}, len(x.Locations))
	for _, p := range x.Locations {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			continue
		}
		if p.Label != "" && !slices.Contains(ai.LocationLabels, strings.ToLower(p.Label)) {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}
