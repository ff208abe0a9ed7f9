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

package badger

import "errors"

// Repositories bundles the three repositories sharing one backend.
type Repositories struct {
	Backend      *Backend
	Interactions *InteractionRepository
	Manual       *ManualRepository
	Events       *EventRepository
}

// OpenRepositories opens a backend and every repository on top of it.
func OpenRepositories(filePath string, inMemory bool, opts ...BackendOption) (*Repositories, error) {
	backend, err := OpenBackend(filePath, inMemory, opts...)
	if err != nil {
		return nil, err
	}

	repos := &Repositories{Backend: backend}
	if repos.Interactions, err = NewInteractionRepository(backend); err != nil {
		backend.Close()
		return nil, err
	}
	if repos.Manual, err = NewManualRepository(backend); err != nil {
		repos.Interactions.Close()
		backend.Close()
		return nil, err
	}
	if repos.Events, err = NewEventRepository(backend); err != nil {
		repos.Manual.Close()
		repos.Interactions.Close()
		backend.Close()
		return nil, err
	}
	return repos, nil
}

// NewMemoryRepositories creates in-memory repositories for testing.
// Caller must Close the result when done.
func NewMemoryRepositories() (*Repositories, error) {
	return OpenRepositories("", true)
}

// Close releases every sequence and then the backend.
func (r *Repositories) Close() error {
	return errors.Join(
		r.Events.Close(),
		r.Manual.Close(),
		r.Interactions.Close(),
		r.Backend.Close(),
	)
}
