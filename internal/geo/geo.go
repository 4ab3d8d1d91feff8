// Package geo holds the distance and relevance math behind location-based
// deal discovery.
package geo

import "math"

const earthRadiusKm = 6371.0

// DistanceKm computes the great-circle distance between two coordinates using
// the haversine formula.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	rlat1 := lat1 * math.Pi / 180
	rlat2 := lat2 * math.Pi / 180
	dlat := (lat2 - lat1) * math.Pi / 180
	dlon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(rlat1)*math.Cos(rlat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(a))
}

// Weights tune the relevance blend. They are policy, not a correctness
// invariant; the defaults favor proximity over discount over recent activity.
type Weights struct {
	Distance float64
	Discount float64
	Recency  float64
}

// DefaultWeights is the production blend.
var DefaultWeights = Weights{Distance: 0.5, Discount: 0.3, Recency: 0.2}

// recencyHalfLifeHours controls how fast stale redemption activity decays out
// of the relevance score.
const recencyHalfLifeHours = 72.0

// Relevance scores a deal for ranking: inverse distance, discount percentage,
// and exponential decay on hours since the last redemption. A deal never
// redeemed contributes zero recency.
func Relevance(w Weights, distanceKm float64, discountPercent int, hoursSinceRedemption float64) float64 {
	score := w.Distance/(1+distanceKm) + w.Discount*float64(discountPercent)/100
	if hoursSinceRedemption >= 0 {
		score += w.Recency * math.Exp(-hoursSinceRedemption/recencyHalfLifeHours)
	}
	return score
}
