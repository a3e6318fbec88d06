// Package profile holds the per-user aggregate: the points accumulator, the
// home coordinate, and the set of visited cities.
package profile

import (
	"time"

	"wayfarer/internal/geo"
	dErrors "wayfarer/pkg/domain-errors"
)

// Profile is the user aggregate. It is exclusively owned by its user: nothing
// outside that user's own requests ever mutates it.
//
// VisitedCities holds normalized city ids, never display names, so membership
// checks agree with the global location keying. The CitiesVisited counter is
// redundant with len(VisitedCities) and exists for cheap reads; the two are
// only ever changed together through ApplyClaim so they cannot diverge.
type Profile struct {
	ID            string          `json:"id"`
	Username      string          `json:"username"`
	Email         string          `json:"email"`
	Points        int64           `json:"points"`
	Home          *geo.Coordinate `json:"home,omitempty"`
	VisitedCities []string        `json:"visited_cities"`
	CitiesVisited int             `json:"cities_visited"`
	ImageURL      string          `json:"image_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// HasSetHome reports whether the home coordinate has been established. Setting
// home is a precondition for any claim.
func (p *Profile) HasSetHome() bool {
	return p.Home != nil
}

// HasVisited reports whether the normalized city id is already claimed.
func (p *Profile) HasVisited(cityID string) bool {
	for _, c := range p.VisitedCities {
		if c == cityID {
			return true
		}
	}
	return false
}

// ApplyClaim records a committed claim: points, the visited set, and the
// counter move as one mutation. Duplicate city ids are refused rather than
// silently ignored; the caller is expected to have checked eligibility.
func (p *Profile) ApplyClaim(cityID string, award int64) error {
	if cityID == "" {
		return dErrors.New(dErrors.CodeBadRequest, "city id must not be empty")
	}
	if award < 0 {
		return dErrors.New(dErrors.CodeBadRequest, "award must not be negative")
	}
	if p.HasVisited(cityID) {
		return dErrors.New(dErrors.CodeConflict, "city already claimed")
	}
	p.Points += award
	p.VisitedCities = append(p.VisitedCities, cityID)
	p.CitiesVisited++
	return nil
}

// SetHome establishes the home coordinate. It is set exactly once and is
// immutable thereafter; (0,0) is the "unset" marker and therefore invalid.
func (p *Profile) SetHome(c geo.Coordinate) error {
	if c.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid home location coordinates")
	}
	if p.HasSetHome() {
		return dErrors.New(dErrors.CodePreconditionFailed, "home location already set")
	}
	home := c
	p.Home = &home
	return nil
}
