// Package location holds the global per-city aggregate shared by all users
// and the leaderboard built on top of it.
package location

import (
	"time"

	"wayfarer/internal/geo"
)

// Location is the per-city aggregate, keyed by the normalized city id. It is
// created lazily by the first successful claim and never deleted. Counters
// move incrementally under the claim transaction; they are never recomputed
// retroactively. Identity metadata (display name, capture coordinate, image)
// is set at creation and never overwritten.
type Location struct {
	CityID             string         `json:"city_id"`
	City               string         `json:"city"`
	Coordinate         geo.Coordinate `json:"coordinate"`
	ImageURL           string         `json:"image_url"`
	TotalVisits        int64          `json:"total_visits"`
	TotalPointsAwarded int64          `json:"total_points_awarded"`
	LastVisitedAt      time.Time      `json:"last_visited_at"`
}
