package catalog

import (
	"strings"

	"github.com/poiesic/suggestit/core"
)

// Build flattens a snapshot and the active manual records into candidates.
//
// Emission order is categories, then members with their tags and reviews, then
// manual records. Candidates are deduplicated on lowercased text, first
// occurrence wins. Blank texts are never emitted.
func Build(snap core.CatalogSnapshot, manual []*core.ManualRecord) []core.Candidate {
	b := &builder{seen: make(map[string]struct{})}

	for _, node := range snap.Categories {
		top := strings.TrimSpace(node.Top)
		sub := strings.TrimSpace(node.Sub)
		subsub := strings.TrimSpace(node.SubSub)
		if top == "" {
			continue
		}
		b.add(core.Candidate{Text: top, Kind: core.KindCategory})
		if sub == "" {
			continue
		}
		b.add(core.Candidate{Text: top + " - " + sub, Kind: core.KindSubcategory})
		if subsub != "" {
			b.add(core.Candidate{Text: top + " - " + sub + " - " + subsub, Kind: core.KindSubsubcategory})
		}
	}

	for i := range snap.Members {
		b.addMember(&snap.Members[i])
	}

	for _, record := range manual {
		if record == nil {
			continue
		}
		name := strings.TrimSpace(record.Content.Name)
		switch record.Kind {
		case core.ManualCategory:
			b.add(core.Candidate{Text: name, Kind: core.KindManualCategory})
		case core.ManualMember:
			b.add(core.Candidate{
				Text:     name,
				Kind:     core.KindManualMember,
				Rating:   record.Content.Rating,
				Location: strings.TrimSpace(record.Content.Location),
			})
		case core.ManualProfession:
			b.add(core.Candidate{Text: name, Kind: core.KindManualProfession})
		case core.ManualLocation:
			b.add(core.Candidate{Text: name, Kind: core.KindManualLocation})
		}
	}

	return b.out
}

type builder struct {
	seen map[string]struct{}
	out  []core.Candidate
}

func (b *builder) add(c core.Candidate) {
	c.Text = strings.TrimSpace(c.Text)
	if c.Text == "" {
		return
	}
	key := c.Key()
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	b.out = append(b.out, c)
}

// addMember emits the member, tag and review candidates of one member. All of
// them share the member's metadata.
func (b *builder) addMember(m *core.Member) {
	details := &core.MemberDetails{
		MemberID:      m.ID,
		ProfileURL:    m.ProfileURL,
		ThumbnailURL:  m.ThumbnailURL,
		Featured:      m.Featured,
		Plan:          m.Plan,
		PriorityScore: max(m.PriorityScore, 0),
		PromoBadge:    m.PromoBadge,
		Hours:         m.Hours,
	}
	base := core.Candidate{
		Rating:      m.Rating,
		Location:    strings.TrimSpace(m.Location),
		Coordinates: m.Coordinates,
		Member:      details,
	}

	withText := func(text string, kind core.CandidateKind) core.Candidate {
		c := base
		c.Text = text
		c.Kind = kind
		return c
	}

	b.add(withText(m.Name, core.KindMember))
	for _, tag := range strings.Split(m.Tags, ",") {
		b.add(withText(tag, core.KindTag))
	}
	b.add(withText(m.Reviews, core.KindReview))
}

// Dictionaries splits manual records into the query expansion and quality
// control inputs of a ranking pass.
type Dictionaries struct {
	// Synonyms maps a lowercase base term to its lowercase expansion terms.
	Synonyms map[string][]string
	// SynonymOrder preserves the insertion order of Synonyms keys.
	SynonymOrder []string
	Blacklist    []string
	Whitelist    []string
}

// DictionariesFrom extracts synonym, blacklist and whitelist data from manual records.
// A later synonym record for the same base term replaces an earlier one.
func DictionariesFrom(manual []*core.ManualRecord) Dictionaries {
	d := Dictionaries{Synonyms: make(map[string][]string)}
	for _, record := range manual {
		if record == nil {
			continue
		}
		switch record.Kind {
		case core.ManualSynonym:
			base := strings.ToLower(strings.TrimSpace(record.Content.Base))
			if base == "" {
				continue
			}
			terms := make([]string, 0, len(record.Content.Terms))
			for _, t := range record.Content.Terms {
				if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
					terms = append(terms, t)
				}
			}
			if _, exists := d.Synonyms[base]; !exists {
				d.SynonymOrder = append(d.SynonymOrder, base)
			}
			d.Synonyms[base] = terms
		case core.ManualBlacklist:
			if term := strings.ToLower(strings.TrimSpace(record.Content.Term)); term != "" {
				d.Blacklist = append(d.Blacklist, term)
			}
		case core.ManualWhitelist:
			if term := strings.ToLower(strings.TrimSpace(record.Content.Term)); term != "" {
				d.Whitelist = append(d.Whitelist, term)
			}
		}
	}
	return d
}

// ColdStartNames returns up to limit manual category and profession names,
// categories first.
func ColdStartNames(manual []*core.ManualRecord, limit int) []string {
	var categories, professions []string
	for _, record := range manual {
		if record == nil {
			continue
		}
		name := strings.TrimSpace(record.Content.Name)
		if name == "" {
			continue
		}
		switch record.Kind {
		case core.ManualCategory:
			categories = append(categories, name)
		case core.ManualProfession:
			professions = append(professions, name)
		}
	}
	names := append(categories, professions...)
	if len(names) > limit {
		names = names[:limit]
	}
	return names
}
