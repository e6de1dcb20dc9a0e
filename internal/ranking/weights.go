package ranking

// Weights defines how the relevance components are blended.
type Weights struct {
	Trust     float64 `json:"trust"`     // Weight for the trust score component (default: 0.6)
	Proximity float64 `json:"proximity"` // Weight for the proximity component (default: 0.4)
}

// DefaultWeights returns the default relevance weights.
//
// Formula: relevance = (trust_norm * 0.6) + (proximity * 0.4)
//
// Trust is the dominant signal; proximity is a secondary signal so that a
// well-trusted listing a few kilometers out can outrank a poorly-trusted one
// next door, but only up to a point.
func DefaultWeights() *Weights {
	return &Weights{
		Trust:     0.6,
		Proximity: 0.4,
	}
}

// TrustWeight normalizes a 0-100 trust score to [0, 1], clamping values that
// stray outside the documented range.
func TrustWeight(trustScore int) float64 {
	if trustScore < 0 {
		return 0.0
	}
	if trustScore > 100 {
		return 1.0
	}
	return float64(trustScore) / 100.0
}

// ProximityWeight converts a distance into a [0, 1] score relative to the
// search radius. Zero distance scores 1.0; anything at or beyond the radius
// scores 0.0, never negative.
func ProximityWeight(distanceKm, radiusKm float64) float64 {
	if radiusKm <= 0 {
		return 0.0
	}
	score := 1.0 - distanceKm/radiusKm
	if score < 0 {
		return 0.0
	}
	return score
}

// Params holds the inputs for one listing's relevance score.
//
// DistanceKm is nil when no proximity signal exists for the listing, either
// because the search carried no user location or because the listing has no
// coordinates. In that case the score is the trust component alone at full
// weight, NOT a renormalized blend; listings with coordinates are scored on
// the blend.
type Params struct {
	TrustScore int      // 0-100
	DistanceKm *float64 // nil when proximity does not apply
	RadiusKm   float64  // search radius used to normalize distance
}

// Score computes the blended relevance score for a listing.
// Results are comparable scalars in [0, 1] (floating rounding may nudge
// slightly past 1); they are not probabilities.
func Score(params Params, weights *Weights) float64 {
	if weights == nil {
		weights = DefaultWeights()
	}

	trust := TrustWeight(params.TrustScore)
	if params.DistanceKm == nil {
		return trust
	}

	proximity := ProximityWeight(*params.DistanceKm, params.RadiusKm)
	return trust*weights.Trust + proximity*weights.Proximity
}
