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

package personalization

import "errors"

var (
	// ErrInteractionRepositoryRequired is returned when an interaction repository is not provided.
	ErrInteractionRepositoryRequired = errors.New("interaction repository required")

	// ErrEventRepositoryRequired is returned when an event repository is not provided.
	ErrEventRepositoryRequired = errors.New("event repository required")

	// ErrLearningStateRequired is returned when a learning state is not provided.
	ErrLearningStateRequired = errors.New("learning state required")
)
