package ranking

// Weights blends the two relevance signals into a base score.
type Weights struct {
	Semantic float64 `yaml:"semantic"`
	Lexical  float64 `yaml:"lexical"`
}

// DefaultWeights returns the 0.7 semantic / 0.3 lexical blend.
func DefaultWeights() Weights {
	return Weights{Semantic: 0.7, Lexical: 0.3}
}

// Boosts is the table of additive score adjustments.
type Boosts struct {
	// History applies once when any remembered query is a substring of the candidate.
	History float64 `yaml:"history"`

	HighRating          float64 `yaml:"high_rating"`
	HighRatingThreshold float64 `yaml:"high_rating_threshold"`

	// LocationMatch applies when the detected city is a substring of the candidate location.
	LocationMatch float64 `yaml:"location_match"`

	NearKm   float64 `yaml:"near_km"`
	Near     float64 `yaml:"near"`
	NearbyKm float64 `yaml:"nearby_km"`
	Nearby   float64 `yaml:"nearby"`

	// ProximityKeyword applies per keyword found in a candidate location that
	// has no coordinates, up to ProximityCap.
	ProximityKeyword float64 `yaml:"proximity_keyword"`
	ProximityCap     float64 `yaml:"proximity_cap"`

	// Learned scales positive weights by 1/10 and negative weights by 1/5.
	Learned       float64 `yaml:"learned"`
	GlobalSuccess float64 `yaml:"global_success"`

	Featured float64 `yaml:"featured"`
	PaidPlan float64 `yaml:"paid_plan"`
	Priority float64 `yaml:"priority"`
	OpenNow  float64 `yaml:"open_now"`
	Promo    float64 `yaml:"promo"`
}

// DefaultBoosts returns the stock boost table.
func DefaultBoosts() Boosts {
	return Boosts{
		History:             0.10,
		HighRating:          0.10,
		HighRatingThreshold: 4.5,
		LocationMatch:       0.10,
		NearKm:              5,
		Near:                0.15,
		NearbyKm:            20,
		Nearby:              0.08,
		ProximityKeyword:    0.05,
		ProximityCap:        0.20,
		Learned:             0.15,
		GlobalSuccess:       0.15 * 0.5,
		Featured:            0.10,
		PaidPlan:            0.08,
		Priority:            0.05,
		OpenNow:             0.05,
		Promo:               0.03,
	}
}

// proximityKeywords hint that a free-text location is close to the caller.
var proximityKeywords = []string{"near", "nearby", "close", "local", "around"}
