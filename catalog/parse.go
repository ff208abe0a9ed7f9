package catalog

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/poiesic/suggestit/core"
)

// weekdays are the accepted open-hours keys.
var weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

// ParseSnapshot decodes a JSON catalog snapshot. Only a syntactically invalid
// document is an error; everything else is coerced.
func ParseSnapshot(data []byte) (core.CatalogSnapshot, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return core.CatalogSnapshot{}, nil
	}
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return core.CatalogSnapshot{}, fmt.Errorf("%w: catalog: %w", core.ErrInvalidInput, err)
	}
	return FromValue(raw), nil
}

// FromValue coerces an already decoded JSON value into a snapshot.
func FromValue(raw any) core.CatalogSnapshot {
	var snap core.CatalogSnapshot
	root, ok := raw.(map[string]any)
	if !ok {
		return snap
	}

	for _, item := range asList(root["categories"]) {
		node, ok := item.(map[string]any)
		if !ok {
			continue
		}
		snap.Categories = append(snap.Categories, core.CategoryNode{
			Top:    asString(node["top_category"]),
			Sub:    asString(node["sub_category"]),
			SubSub: asString(node["sub_sub_category"]),
		})
	}

	for _, item := range asList(root["members"]) {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		snap.Members = append(snap.Members, parseMember(m))
	}

	if settings, ok := root["settings"].(map[string]any); ok {
		snap.Settings.RadiusKm = asFloatPtr(settings["radius_km"])
	}
	return snap
}

func parseMember(m map[string]any) core.Member {
	member := core.Member{
		ID:            asString(m["id"]),
		Name:          asString(m["name"]),
		Tags:          asTags(m["tags"]),
		Location:      asString(m["location"]),
		Reviews:       asString(m["reviews"]),
		Rating:        asFloat(m["rating"]),
		ProfileURL:    asString(m["profile_url"]),
		ThumbnailURL:  asString(m["thumbnail_url"]),
		Featured:      asBool(m["featured"]),
		Plan:          core.PlanLevel(strings.ToLower(asString(m["plan_level"]))),
		PriorityScore: asFloat(m["priority_score"]),
		PromoBadge:    asString(m["promo_badge"]),
		Hours:         asHours(m["hours"]),
	}
	lat, lon := asFloatPtr(m["latitude"]), asFloatPtr(m["longitude"])
	if lat != nil && lon != nil {
		member.Coordinates = &core.Coordinates{Lat: *lat, Lon: *lon}
	}
	return member
}

func asList(v any) []any {
	list, _ := v.([]any)
	return list
}

func asString(v any) string {
	switch x := v.(type) {
	case string:
		return strings.TrimSpace(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// asTags accepts either a comma separated string or a list of strings.
func asTags(v any) string {
	if list, ok := v.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			if s := asString(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ",")
	}
	return asString(v)
}

func asFloatPtr(v any) *float64 {
	switch x := v.(type) {
	case float64:
		return &x
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return nil
		}
		return &f
	default:
		return nil
	}
}

func asFloat(v any) float64 {
	if f := asFloatPtr(v); f != nil {
		return *f
	}
	return 0
}

func asBool(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case float64:
		return x != 0
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	default:
		return false
	}
}

// asHours accepts {"mon": [["09:00","17:00"]]} or {"mon": [{"start":..,"end":..}]}.
// Unknown days and malformed intervals are dropped.
func asHours(v any) core.OpenHours {
	days, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	hours := core.OpenHours{}
	for _, day := range weekdays {
		for _, item := range asList(days[day]) {
			var start, end string
			switch iv := item.(type) {
			case []any:
				if len(iv) != 2 {
					continue
				}
				start, end = asString(iv[0]), asString(iv[1])
			case map[string]any:
				start, end = asString(iv["start"]), asString(iv["end"])
			default:
				continue
			}
			if start == "" || end == "" {
				continue
			}
			hours[day] = append(hours[day], core.Interval{Start: start, End: end})
		}
	}
	if len(hours) == 0 {
		return nil
	}
	return hours
}
