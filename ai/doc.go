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

// Package ai provides abstractions for the AI services suggestit ranks with.
//
// This package defines interfaces for text embeddings and location entity
// extraction. The ranking engine depends on these abstractions rather than on
// concrete model servers.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Embedder: Generates vector embeddings from text
//   - LocationExtractor: Finds place names in a query
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
//   - ai/openai: Production implementation using OpenAI-compatible APIs
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder, etc.) return
// INTERFACE types. Test utility constructors (mock.NewMockEmbedder,
// mock.NewMockLocationExtractor) return CONCRETE types so tests can inject
// behavior and assert on call counts.
//
//	mockEmbed := mock.NewMockEmbedder()  // returns *mock.MockEmbedder
//	mockEmbed.WithEmbedTextsFunc(...)    // needs concrete type
//	count := mockEmbed.CallCount()       // test assertion
//
// # Usage Example
//
//	provider, err := openai.NewProvider(ai.NewConfig(ai.WithHost("http://localhost:11434")))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	vectors, err := provider.Embedder().EmbedTexts(ctx, []string{"plumber", "Plumbing - Drains"})
//	places, err := provider.LocationExtractor().ExtractLocations(ctx, "plumber in Austin")
package ai
