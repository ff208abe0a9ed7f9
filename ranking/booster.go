package ranking

import (
	"slices"
	"strings"
	"time"

	"github.com/poiesic/suggestit/core"
	"github.com/poiesic/suggestit/learning"
	"github.com/poiesic/suggestit/rules"
)

// Drop reasons reported to monitors and in the debug trace.
const (
	DropBlacklist = "blacklist"
	DropRadius    = "radius"
)

// boostInput is the per-request context shared by every candidate.
type boostInput struct {
	query     string
	intent    string
	history   []string
	city      string
	caller    *core.Coordinates
	radiusKm  *float64
	profile   *core.PreferenceProfile
	blacklist []string
	now       time.Time
}

// scored is a candidate that survived the quality filters.
type scored struct {
	candidate  *core.Candidate
	order      int
	base       float64
	boost      float64
	distanceKm *float64
	signals    map[string]float64
}

func (s *scored) score() float64 {
	return s.base + s.boost
}

// booster applies boosts and hard filters.
type booster struct {
	boosts Boosts
	state  *learning.State
	rules  *rules.Engine
}

// apply boosts every candidate, drops filtered ones and returns the survivors
// sorted by descending score. Ties keep emission order.
func (b *booster) apply(candidates []core.Candidate, base []float64, in *boostInput, onDrop func(reason, text string)) []*scored {
	history := make([]string, 0, len(in.history))
	for _, h := range in.history {
		if h = strings.ToLower(h); h != "" {
			history = append(history, h)
		}
	}
	city := strings.ToLower(in.city)

	out := make([]*scored, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]
		text := strings.ToLower(c.Text)

		if slices.ContainsFunc(in.blacklist, func(term string) bool { return strings.Contains(text, term) }) {
			onDrop(DropBlacklist, c.Text)
			continue
		}

		s := &scored{candidate: c, order: i, base: base[i], signals: make(map[string]float64)}
		add := func(name string, v float64) {
			if v != 0 {
				s.signals[name] += v
				s.boost += v
			}
		}

		if slices.ContainsFunc(history, func(h string) bool { return strings.Contains(text, h) }) {
			add("history", b.boosts.History)
		}
		if c.Rating >= b.boosts.HighRatingThreshold {
			add("rating", b.boosts.HighRating)
		}
		if city != "" && c.Location != "" && strings.Contains(strings.ToLower(c.Location), city) {
			add("location", b.boosts.LocationMatch)
		}

		if in.caller != nil && c.Coordinates != nil {
			d := Haversine(*in.caller, *c.Coordinates)
			s.distanceKm = &d
			switch {
			case d <= b.boosts.NearKm:
				add("distance", b.boosts.Near)
			case d <= b.boosts.NearbyKm:
				add("distance", b.boosts.Nearby)
			}
			if in.radiusKm != nil && d > *in.radiusKm {
				onDrop(DropRadius, c.Text)
				continue
			}
		} else if in.caller != nil && c.Location != "" {
			add("proximity", b.boosts.proximityBoost(c.Location))
		}

		if in.profile != nil {
			if w, ok := in.profile.Positive[text]; ok {
				add("learned_positive", b.boosts.Learned*(w/10))
			}
			if w, ok := in.profile.Negative[text]; ok {
				add("learned_negative", -b.boosts.Learned*(w/5))
			}
		}
		if b.state.Successful(text) {
			add("global_success", b.boosts.GlobalSuccess)
		}

		if m := c.Member; m != nil {
			if m.Featured {
				add("featured", b.boosts.Featured)
			}
			if m.Plan.Paid() {
				add("plan", b.boosts.PaidPlan)
			}
			add("priority", b.boosts.Priority*m.PriorityScore)
			if OpenAt(m.Hours, in.now) {
				add("open_now", b.boosts.OpenNow)
			}
			if m.PromoBadge != "" {
				add("promo", b.boosts.Promo)
			}
		}

		if b.rules.Len() > 0 {
			_, fired := b.rules.Apply(rules.Input{
				Candidate:  c,
				DistanceKm: s.distanceKm,
				Query:      in.query,
				Intent:     in.intent,
				City:       in.city,
			})
			for name, v := range fired {
				add("rule:"+name, v)
			}
		}

		out = append(out, s)
	}

	slices.SortStableFunc(out, func(x, y *scored) int {
		switch {
		case x.score() > y.score():
			return -1
		case x.score() < y.score():
			return 1
		}
		return 0
	})
	return out
}
