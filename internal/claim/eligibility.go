package claim

import (
	"wayfarer/internal/profile"
)

// Evaluate decides whether a claim is currently legal against a profile
// snapshot. The coordinator calls it twice: once as a cheap pre-check and
// again inside the transaction against the freshly read profile, which is the
// authoritative decision.
//
// The user's home city gets no special treatment here: it is just another
// never-visited city until claimed. Membership in the visited set is the sole
// gate besides the home-set precondition.
func Evaluate(p *profile.Profile, cityName string) (cityID string, reason RejectReason, ok bool) {
	cityID = NormalizeCityID(cityName)
	if cityID == "" {
		return "", ReasonNoCityDetected, false
	}
	if !p.HasSetHome() {
		return "", ReasonHomeNotSet, false
	}
	if p.HasVisited(cityID) {
		return "", ReasonAlreadyClaimed, false
	}
	return cityID, "", true
}
