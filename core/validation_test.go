package core

import (
	"errors"
	"testing"
)

func ptr(f float64) *float64 { return &f }

func TestNormalizeRankRequest(t *testing.T) {
	tests := []struct {
		name     string
		req      *RankRequest
		wantErr  error
		wantUser string
	}{
		{
			name:     "valid request",
			req:      &RankRequest{Query: "plumber", UserID: "u1"},
			wantUser: "u1",
		},
		{
			name:     "missing user defaults to anonymous",
			req:      &RankRequest{Query: "plumber"},
			wantUser: AnonymousUser,
		},
		{
			name:     "zero coordinates are valid",
			req:      &RankRequest{Query: "plumber", Latitude: ptr(0), Longitude: ptr(0)},
			wantUser: AnonymousUser,
		},
		{
			name:    "nil request",
			req:     nil,
			wantErr: ErrInvalidInput,
		},
		{
			name:    "empty query",
			req:     &RankRequest{Query: ""},
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "whitespace query",
			req:     &RankRequest{Query: "   \t"},
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "latitude out of range",
			req:     &RankRequest{Query: "plumber", Latitude: ptr(91)},
			wantErr: ErrInvalidCoordinates,
		},
		{
			name:    "longitude out of range",
			req:     &RankRequest{Query: "plumber", Longitude: ptr(-181)},
			wantErr: ErrInvalidCoordinates,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NormalizeRankRequest(tt.req)

			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("NormalizeRankRequest() error = %v, want nil", err)
				}
				if tt.req.UserID != tt.wantUser {
					t.Errorf("UserID = %q, want %q", tt.req.UserID, tt.wantUser)
				}
				return
			}

			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NormalizeRankRequest() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("NormalizeRankRequest() error = %v, want wrapped %v", err, ErrInvalidInput)
			}
		})
	}
}

func TestNormalizeRankRequestTrimsQuery(t *testing.T) {
	req := &RankRequest{Query: "  plumber near me  "}
	if err := NormalizeRankRequest(req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Query != "plumber near me" {
		t.Errorf("Query = %q, want trimmed", req.Query)
	}
}

func TestValidateFeedback(t *testing.T) {
	tests := []struct {
		name    string
		fb      *Feedback
		wantErr error
	}{
		{
			name: "valid feedback",
			fb:   &Feedback{UserID: "u1", Query: "plumber", Selected: "Best plumber", Rating: 5},
		},
		{
			name:    "nil feedback",
			wantErr: ErrInvalidInput,
		},
		{
			name:    "empty query",
			fb:      &Feedback{Selected: "x", Rating: 3},
			wantErr: ErrEmptyQuery,
		},
		{
			name:    "empty selection",
			fb:      &Feedback{Query: "plumber", Rating: 3},
			wantErr: ErrEmptySelection,
		},
		{
			name:    "rating too low",
			fb:      &Feedback{Query: "plumber", Selected: "x", Rating: 0},
			wantErr: ErrInvalidRating,
		},
		{
			name:    "rating too high",
			fb:      &Feedback{Query: "plumber", Selected: "x", Rating: 6},
			wantErr: ErrInvalidRating,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFeedback(tt.fb)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateFeedback() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateFeedback() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateManualRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *ManualRecord
		wantErr error
	}{
		{
			name:   "valid category",
			record: &ManualRecord{Kind: ManualCategory, Content: ManualContent{Name: "Plumbing"}},
		},
		{
			name:   "valid synonym",
			record: &ManualRecord{Kind: ManualSynonym, Content: ManualContent{Base: "plumber", Terms: []string{"pipe fitter"}}},
		},
		{
			name:    "nil record",
			wantErr: ErrInvalidInput,
		},
		{
			name:    "unknown kind",
			record:  &ManualRecord{Kind: "widget", Content: ManualContent{Name: "x"}},
			wantErr: ErrInvalidManualKind,
		},
		{
			name:    "empty content",
			record:  &ManualRecord{Kind: ManualBlacklist},
			wantErr: ErrEmptyManualContent,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateManualRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateManualRecord() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateManualRecord() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateEvent(t *testing.T) {
	ev := &Event{Type: "click"}
	if err := ValidateEvent(ev); err != nil {
		t.Fatalf("ValidateEvent() error = %v", err)
	}
	if ev.UserID != AnonymousUser {
		t.Errorf("UserID = %q, want %q", ev.UserID, AnonymousUser)
	}

	if err := ValidateEvent(&Event{UserID: "u1", Type: " "}); !errors.Is(err, ErrEmptyEventType) {
		t.Errorf("ValidateEvent() error = %v, want %v", err, ErrEmptyEventType)
	}
}

func TestReasonFor(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{ErrInvalidInput, ReasonInvalidInput},
		{errors.Join(errors.New("boom"), ErrUpstreamSignal), ReasonUpstreamSignal},
		{ErrStoreUnavailable, ReasonStoreUnavailable},
		{errors.New("other"), ReasonInternal},
	}
	for _, tt := range tests {
		if got := ReasonFor(tt.err); got != tt.want {
			t.Errorf("ReasonFor(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestIDFromContent(t *testing.T) {
	a := IDFromContent("category:Plumbing")
	b := IDFromContent("category:Plumbing")
	c := IDFromContent("category:Electric")
	if a != b {
		t.Errorf("IDFromContent not deterministic: %d != %d", a, b)
	}
	if a == c {
		t.Errorf("IDFromContent collision for distinct content")
	}
}

func TestCandidateKindMemberDerived(t *testing.T) {
	for _, k := range []CandidateKind{KindMember, KindTag, KindReview} {
		if !k.MemberDerived() {
			t.Errorf("%s should be member derived", k)
		}
	}
	for _, k := range []CandidateKind{KindCategory, KindManualMember, KindManualLocation} {
		if k.MemberDerived() {
			t.Errorf("%s should not be member derived", k)
		}
	}
}
