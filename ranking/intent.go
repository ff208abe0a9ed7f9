package ranking

import (
	"strings"

	"github.com/poiesic/suggestit/core"
)

// Intent labels, in detection priority order.
const (
	IntentBook    = "book"
	IntentHire    = "hire"
	IntentReview  = "review"
	IntentCompare = "compare"
	IntentGeneric = "generic"
)

// CityPlaceholder fills {city} when no location was detected in the query.
const CityPlaceholder = "[City]"

var intentKeywords = []struct {
	intent   string
	keywords []string
}{
	{IntentBook, []string{"book", "schedule", "reserve"}},
	{IntentHire, []string{"hire", "find", "near me", "nearby"}},
	{IntentReview, []string{"review", "reviews", "rating"}},
	{IntentCompare, []string{"compare", "vs", "best"}},
}

var intentTemplates = map[string][]string{
	IntentBook: {
		"Book {base} in {city}",
		"Schedule with {base} near you",
		"Reserve {base} today",
	},
	IntentHire: {
		"Top-rated {base} near you",
		"Best {base} in {city}",
		"Trusted {base} nearby",
	},
	IntentReview: {
		"Highest-rated {base} in {city}",
		"{base} with great reviews",
		"Most trusted {base} near you",
	},
	IntentCompare: {
		"Compare {base} in {city}",
		"Top {base} options near you",
		"Best {base} nearby",
	},
	IntentGeneric: {
		"Top-rated {base} near you",
		"Affordable {base} in {city}",
		"Trusted {base} nearby",
		"Best {base} in {city}",
		"Experienced {base} near me",
	},
}

// DetectIntent returns the first intent whose keywords occur as substrings of
// the lowercased query, or IntentGeneric.
func DetectIntent(query string) string {
	q := strings.ToLower(query)
	for _, ik := range intentKeywords {
		for _, kw := range ik.keywords {
			if strings.Contains(q, kw) {
				return ik.intent
			}
		}
	}
	return IntentGeneric
}

// Render fills every template of intent with base and city.
func Render(base, city, intent string) []string {
	if city == "" {
		city = CityPlaceholder
	}
	templates, ok := intentTemplates[intent]
	if !ok {
		templates = intentTemplates[IntentGeneric]
	}
	r := strings.NewReplacer("{base}", base, "{city}", city)
	out := make([]string, len(templates))
	for i, tpl := range templates {
		out[i] = r.Replace(tpl)
	}
	return out
}

// rewrite renders suggestions for the top candidates and builds their cards.
// Suggestions are deduplicated case-insensitively and capped at limit.
func rewrite(top []*scored, city, intent string, limit int) ([]string, []core.Card) {
	suggestions := make([]string, 0, limit)
	seen := make(map[string]struct{})
	cards := []core.Card{}

	for _, s := range top {
		for _, text := range Render(s.candidate.Text, city, intent) {
			key := strings.ToLower(text)
			if _, dup := seen[key]; dup || len(suggestions) >= limit {
				continue
			}
			seen[key] = struct{}{}
			suggestions = append(suggestions, text)
		}

		c := s.candidate
		if !c.Kind.MemberDerived() || !c.Member.HasReference() {
			continue
		}
		card := core.Card{
			Title:        c.Text,
			MemberID:     c.Member.MemberID,
			ProfileURL:   c.Member.ProfileURL,
			ThumbnailURL: c.Member.ThumbnailURL,
			Rating:       c.Rating,
			Location:     c.Location,
			PromoBadge:   c.Member.PromoBadge,
			Featured:     c.Member.Featured,
		}
		if s.distanceKm != nil {
			d := round(*s.distanceKm, 2)
			card.DistanceKm = &d
		}
		cards = append(cards, card)
	}
	return suggestions, cards
}
