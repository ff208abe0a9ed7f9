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

package ranking

import "errors"

var (
	// ErrManualRepositoryRequired is returned when a manual record repository is not provided.
	ErrManualRepositoryRequired = errors.New("manual repository required")

	// ErrProfileSourceRequired is returned when a preference profile source is not provided.
	ErrProfileSourceRequired = errors.New("profile source required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrLearningStateRequired is returned when a learning state is not provided.
	ErrLearningStateRequired = errors.New("learning state required")

	// ErrDimensionMismatch is returned when the embedder yields vectors of different lengths.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
