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

package core

import "errors"

// Error classes surfaced to callers.
var (
	// ErrInvalidInput indicates a request failed validation before any work was done.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUpstreamSignal indicates the embedding provider or lexical scorer failed.
	ErrUpstreamSignal = errors.New("upstream signal failure")

	// ErrStoreUnavailable indicates a required read from the persistent store failed.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Field validation errors
var (
	// ErrEmptyQuery indicates the query is empty after trimming.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrEmptySelection indicates feedback without a selected suggestion.
	ErrEmptySelection = errors.New("selected suggestion cannot be empty")

	// ErrInvalidRating indicates a satisfaction rating outside 1-5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrInvalidManualKind indicates an unknown manual record kind.
	ErrInvalidManualKind = errors.New("invalid manual record kind")

	// ErrEmptyManualContent indicates a manual record without payload.
	ErrEmptyManualContent = errors.New("manual record content cannot be empty")

	// ErrEmptyEventType indicates an event without a type.
	ErrEmptyEventType = errors.New("event type cannot be empty")

	// ErrInvalidCoordinates indicates a latitude or longitude out of range.
	ErrInvalidCoordinates = errors.New("invalid coordinates")
)

// Machine-readable failure reasons.
const (
	ReasonInvalidInput     = "invalid_input"
	ReasonUpstreamSignal   = "upstream_signal_failure"
	ReasonStoreUnavailable = "store_unavailable"
	ReasonInternal         = "internal_error"
)

// ReasonFor maps an error to its machine-readable reason string.
func ReasonFor(err error) string {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return ReasonInvalidInput
	case errors.Is(err, ErrUpstreamSignal):
		return ReasonUpstreamSignal
	case errors.Is(err, ErrStoreUnavailable):
		return ReasonStoreUnavailable
	default:
		return ReasonInternal
	}
}
