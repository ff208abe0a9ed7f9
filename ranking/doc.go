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

// Package ranking turns a query and a catalog snapshot into ranked suggestions.
//
// A Ranker runs the pipeline:
//
//	cache lookup → candidates → query expansion → hybrid scoring → boosts →
//	top-N selection → intent-aware rewriting → cache write
//
// Hybrid scoring blends cosine similarity from an ai.Embedder with a lexical
// score (BM25 by default). Boosts are additive and configured through Boosts;
// blacklisted candidates and candidates outside the catalog search radius are
// dropped outright. Every pass can produce a DebugTrace of the top candidates.
//
// Observe a pass by implementing Monitor and calling RankWithMonitor, or set a
// service-wide monitor with WithMonitor.
package ranking
