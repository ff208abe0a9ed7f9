package core

import (
	"encoding/binary"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for persisted entities.
// It is generated from database sequences.
type ID uint64

// ContentID is a deterministic content address.
type ContentID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ContentID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ContentID(binary.LittleEndian.Uint64(sum))
}

// AnonymousUser is the user id applied when a request does not carry one.
const AnonymousUser = "anon"

// CandidateKind tags the variant of a Candidate.
type CandidateKind string

const (
	KindCategory         CandidateKind = "category"
	KindSubcategory      CandidateKind = "subcategory"
	KindSubsubcategory   CandidateKind = "subsubcategory"
	KindMember           CandidateKind = "member"
	KindTag              CandidateKind = "tag"
	KindReview           CandidateKind = "review"
	KindManualCategory   CandidateKind = "manual_category"
	KindManualMember     CandidateKind = "manual_member"
	KindManualProfession CandidateKind = "manual_profession"
	KindManualLocation   CandidateKind = "manual_location"
)

// MemberDerived reports whether candidates of this kind come from a catalog member
// and may therefore carry member details and produce cards.
func (k CandidateKind) MemberDerived() bool {
	return k == KindMember || k == KindTag || k == KindReview
}

// PlanLevel is a member's subscription tier.
type PlanLevel string

const (
	PlanNone     PlanLevel = ""
	PlanPremium  PlanLevel = "premium"
	PlanGold     PlanLevel = "gold"
	PlanPlatinum PlanLevel = "platinum"
)

// Paid reports whether the plan earns the plan-level boost.
func (p PlanLevel) Paid() bool {
	return p == PlanPremium || p == PlanGold || p == PlanPlatinum
}

// Coordinates is a resolved latitude/longitude pair in degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Interval is an opening interval in "HH:MM" form, inclusive on both ends.
type Interval struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// OpenHours maps a lowercase three-letter weekday ("mon".."sun") to its open intervals.
// A day without intervals is closed.
type OpenHours map[string][]Interval

// MemberDetails holds the fields only member-derived candidates carry.
type MemberDetails struct {
	MemberID      string
	ProfileURL    string
	ThumbnailURL  string
	Featured      bool
	Plan          PlanLevel
	PriorityScore float64
	PromoBadge    string
	Hours         OpenHours
}

// HasReference reports whether a card can link back to the member.
func (d *MemberDetails) HasReference() bool {
	return d != nil && (d.ProfileURL != "" || d.MemberID != "")
}

// Candidate is the atomic scoring unit. Shared fields are hoisted here; Member is
// only set for member, tag and review candidates.
type Candidate struct {
	Text        string
	Kind        CandidateKind
	Rating      float64
	Location    string
	Coordinates *Coordinates
	Member      *MemberDetails
}

// Key is the case-insensitive dedup key of the candidate.
func (c *Candidate) Key() string {
	return strings.ToLower(c.Text)
}

// CategoryNode is one row of the category taxonomy. Any level may be empty.
type CategoryNode struct {
	Top    string
	Sub    string
	SubSub string
}

// Member is a catalog member profile.
type Member struct {
	ID            string
	Name          string
	Tags          string // comma separated
	Location      string
	Reviews       string
	Rating        float64
	ProfileURL    string
	ThumbnailURL  string
	Coordinates   *Coordinates
	Featured      bool
	Plan          PlanLevel
	PriorityScore float64
	PromoBadge    string
	Hours         OpenHours
}

// Settings are platform settings shipped with the catalog.
type Settings struct {
	// RadiusKm is the search radius. Nil means unset.
	RadiusKm *float64
}

// CatalogSnapshot is the caller-owned catalog for a single request.
type CatalogSnapshot struct {
	Categories []CategoryNode
	Members    []Member
	Settings   Settings
}

// ManualKind is the type of an admin-curated record.
type ManualKind string

const (
	ManualCategory   ManualKind = "category"
	ManualMember     ManualKind = "member"
	ManualProfession ManualKind = "profession"
	ManualLocation   ManualKind = "location"
	ManualSynonym    ManualKind = "synonym"
	ManualBlacklist  ManualKind = "blacklist"
	ManualWhitelist  ManualKind = "whitelist"
)

// ManualKinds lists every accepted manual record kind.
var ManualKinds = []ManualKind{
	ManualCategory,
	ManualMember,
	ManualProfession,
	ManualLocation,
	ManualSynonym,
	ManualBlacklist,
	ManualWhitelist,
}

// ManualContent is the typed payload of a manual record. Which fields are meaningful
// depends on the record kind.
type ManualContent struct {
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Location string   `json:"location,omitempty" yaml:"location,omitempty"`
	Rating   float64  `json:"rating,omitempty" yaml:"rating,omitempty"`
	Base     string   `json:"base,omitempty" yaml:"base,omitempty"`
	Terms    []string `json:"terms,omitempty" yaml:"terms,omitempty"`
	Term     string   `json:"term,omitempty" yaml:"term,omitempty"`
}

// IsZero reports whether no payload field is set.
func (c ManualContent) IsZero() bool {
	return c.Name == "" && c.Location == "" && c.Rating == 0 && c.Base == "" &&
		len(c.Terms) == 0 && c.Term == ""
}

// ManualContentAddress computes the content address of a manual record from its
// kind and payload. Struct field order makes the JSON encoding canonical.
func ManualContentAddress(kind ManualKind, content ManualContent) ContentID {
	payload, _ := json.Marshal(content)
	return IDFromContent(string(kind) + ":" + string(payload))
}

// ManualRecord is an admin-curated entry.
type ManualRecord struct {
	Id         ID
	ContentId  ContentID
	Kind       ManualKind
	Content    ManualContent
	AddedBy    string
	Active     bool
	InsertedAt time.Time
}

// Interaction is one entry of the append-only interaction log.
type Interaction struct {
	Id          ID
	UserID      string
	Query       string
	Suggestions []string
	Selected    string
	Rating      int
	Location    string
	Variant     string
	Timestamp   time.Time
	UpdatedAt   time.Time
}

// Feedback is a user's verdict on a suggestion returned for a query.
type Feedback struct {
	UserID   string
	Query    string
	Selected string
	Rating   int
	Location string
}

// Event is an arbitrary typed analytics event.
type Event struct {
	Id        ID
	UserID    string
	Type      string
	Payload   string // JSON encoded
	Timestamp time.Time
}

// PreferenceProfile holds per-user learned weights keyed by lowercase suggestion text.
// It is rebuilt per request and treated as read-only.
type PreferenceProfile struct {
	Positive map[string]float64
	Negative map[string]float64
}

// RankRequest is the inbound rank contract.
type RankRequest struct {
	Query     string
	UserID    string
	History   []string
	Catalog   CatalogSnapshot
	Location  string
	Latitude  *float64
	Longitude *float64
	Debug     bool
	Variant   string
}

// Card is a clickable member reference returned alongside suggestions.
type Card struct {
	Title        string   `json:"title"`
	MemberID     string   `json:"member_id,omitempty"`
	ProfileURL   string   `json:"profile_url,omitempty"`
	ThumbnailURL string   `json:"thumbnail_url,omitempty"`
	Rating       float64  `json:"rating"`
	Location     string   `json:"location,omitempty"`
	DistanceKm   *float64 `json:"distance_km"`
	PromoBadge   string   `json:"promo_badge,omitempty"`
	Featured     bool     `json:"featured"`
}

// TraceCandidate is the explain-mode view of one ranked candidate.
type TraceCandidate struct {
	Text       string             `json:"text"`
	Kind       CandidateKind      `json:"type"`
	Score      float64            `json:"score"`
	Base       float64            `json:"base"`
	Boost      float64            `json:"boost"`
	DistanceKm *float64           `json:"distance_km"`
	Signals    map[string]float64 `json:"signals,omitempty"`
}

// DebugTrace explains how a result was produced.
type DebugTrace struct {
	Reason        string           `json:"reason,omitempty"`
	Intent        string           `json:"intent,omitempty"`
	City          string           `json:"city,omitempty"`
	ExpandedQuery string           `json:"expanded_query,omitempty"`
	Candidates    int              `json:"candidates,omitempty"`
	Dropped       map[string]int   `json:"dropped,omitempty"`
	TopCandidates []TraceCandidate `json:"top_candidates,omitempty"`
}

// RankResponse is the outbound rank contract.
type RankResponse struct {
	Query       string      `json:"original_query"`
	Suggestions []string    `json:"suggestions"`
	Cards       []Card      `json:"cards"`
	UserID      string      `json:"user_id"`
	Timestamp   time.Time   `json:"timestamp"`
	Debug       *DebugTrace `json:"debug,omitempty"`
	Cached      bool        `json:"-"`
}
