package ranking

import (
	"math"
	"strings"
	"time"

	"github.com/poiesic/suggestit/core"
)

// earthRadiusKm is the mean Earth radius used by Haversine.
const earthRadiusKm = 6371.0

// Haversine returns the great-circle distance between a and b in kilometers.
func Haversine(a, b core.Coordinates) float64 {
	lat1, lat2 := a.Lat*math.Pi/180, b.Lat*math.Pi/180
	dLat := lat2 - lat1
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// proximityBoost credits each proximity keyword in location, capped.
func (b Boosts) proximityBoost(location string) float64 {
	lower := strings.ToLower(location)
	var boost float64
	for _, kw := range proximityKeywords {
		if strings.Contains(lower, kw) {
			boost += b.ProximityKeyword
		}
	}
	return min(boost, b.ProximityCap)
}

var weekdays = [...]string{"sun", "mon", "tue", "wed", "thu", "fri", "sat"}

// OpenAt reports whether hours contain t. Intervals compare as "HH:MM"
// strings, inclusive on both ends; a day without intervals is closed.
func OpenAt(hours core.OpenHours, t time.Time) bool {
	current := t.Format("15:04")
	for _, iv := range hours[weekdays[t.Weekday()]] {
		if iv.Start <= current && current <= iv.End {
			return true
		}
	}
	return false
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
