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

import (
	"fmt"
	"slices"
	"strings"
)

// NormalizeRankRequest trims the query, applies the anonymous user default and
// validates the result.
//
// Validation rules:
//   - Query must not be empty after trimming
//   - Latitude must be within [-90, 90] and longitude within [-180, 180] when set
//
// NOT validated (malformed catalog entries are defaulted, never rejected):
//   - Catalog contents
func NormalizeRankRequest(req *RankRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidInput)
	}

	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyQuery)
	}

	req.UserID = strings.TrimSpace(req.UserID)
	if req.UserID == "" {
		req.UserID = AnonymousUser
	}

	if req.Latitude != nil && (*req.Latitude < -90 || *req.Latitude > 90) {
		return fmt.Errorf("%w: %w: latitude %f", ErrInvalidInput, ErrInvalidCoordinates, *req.Latitude)
	}
	if req.Longitude != nil && (*req.Longitude < -180 || *req.Longitude > 180) {
		return fmt.Errorf("%w: %w: longitude %f", ErrInvalidInput, ErrInvalidCoordinates, *req.Longitude)
	}

	return nil
}

// ValidateFeedback validates and normalizes a feedback submission.
func ValidateFeedback(fb *Feedback) error {
	if fb == nil {
		return fmt.Errorf("%w: feedback is nil", ErrInvalidInput)
	}

	fb.Query = strings.TrimSpace(fb.Query)
	fb.Selected = strings.TrimSpace(fb.Selected)
	if fb.UserID = strings.TrimSpace(fb.UserID); fb.UserID == "" {
		fb.UserID = AnonymousUser
	}

	if fb.Query == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyQuery)
	}
	if fb.Selected == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptySelection)
	}
	if fb.Rating < 1 || fb.Rating > 5 {
		return fmt.Errorf("%w: %w: got %d", ErrInvalidInput, ErrInvalidRating, fb.Rating)
	}
	return nil
}

// ValidateManualKind checks that kind is one of ManualKinds.
func ValidateManualKind(kind ManualKind) error {
	if !slices.Contains(ManualKinds, kind) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidInput, ErrInvalidManualKind, kind)
	}
	return nil
}

// ValidateManualRecord validates a manual record before it is stored.
func ValidateManualRecord(record *ManualRecord) error {
	if record == nil {
		return fmt.Errorf("%w: manual record is nil", ErrInvalidInput)
	}
	if err := ValidateManualKind(record.Kind); err != nil {
		return err
	}
	if record.Content.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyManualContent)
	}
	return nil
}

// ValidateEvent validates an analytics event.
func ValidateEvent(event *Event) error {
	if event == nil {
		return fmt.Errorf("%w: event is nil", ErrInvalidInput)
	}
	if event.UserID = strings.TrimSpace(event.UserID); event.UserID == "" {
		event.UserID = AnonymousUser
	}
	if strings.TrimSpace(event.Type) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyEventType)
	}
	return nil
}
