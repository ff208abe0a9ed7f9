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

// Package storage provides the storage abstraction layer for suggestit.
//
// This package defines repository interfaces that decouple the persistent store
// from the ranking pipeline. The store holds three append-mostly data sets:
//
//   - InteractionRepository: the interaction log (rank results, selections, ratings)
//   - ManualRepository: admin-curated manual records
//   - EventRepository: typed analytics events
//
// Records are encoded with MUS (github.com/mus-format/mus-go). Every encoded
// record starts with a version number so the layout can evolve.
//
// # Usage
//
// Create repositories backed by BadgerDB:
//
//	backend, err := badger.OpenBackend("/path/to/db", false)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer backend.Close()
//	interactions, err := badger.NewInteractionRepository(backend)
//
// Use in tests with in-memory storage:
//
//	repos, err := badger.NewMemoryRepositories()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer repos.Close()
//
// # Thread Safety
//
// All repository implementations must be thread-safe and support
// concurrent access from multiple goroutines.
//
// # Context Support
//
// All repository methods accept context.Context for cancellation
// and timeout support. Pass context.Background() for operations
// without specific timeout requirements.
package storage
