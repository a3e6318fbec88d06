package claim

import (
	"math"

	"wayfarer/internal/geo"
)

const (
	// minDistancePoints guarantees a non-trivial reward even for nearby cities.
	minDistancePoints = 25
	// distanceMultiplier converts kilometers from home into points.
	distanceMultiplier = 0.5
	// discoveryBonus rewards the first user ever to claim a city, independent
	// of that user's own history.
	discoveryBonus = 200
)

// Score computes the point award for an eligible claim. firstDiscovery must
// be derived from the location aggregate read inside the same transaction as
// the commit; evaluating it beforehand races with concurrent claimers.
func Score(home, current geo.Coordinate, firstDiscovery bool) int64 {
	km := geo.Distance(home, current)
	award := int64(math.Floor(math.Max(minDistancePoints, km*distanceMultiplier)))
	if firstDiscovery {
		award += discoveryBonus
	}
	return award
}
