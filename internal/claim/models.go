// Package claim implements the geo-claim scoring engine: eligibility
// evaluation, the point formula, and the result types for the transaction
// coordinator in claim/service.
package claim

import (
	"strings"

	"wayfarer/internal/geo"
)

// Request is the ephemeral claim submission. CityName is the resolved display
// name from the position resolver and may be empty when the device is not in
// a recognizable city.
type Request struct {
	UserID   string         `json:"user_id"`
	CityName string         `json:"city_name"`
	Position geo.Coordinate `json:"position"`
}

// Outcome is the terminal state of a claim attempt.
type Outcome string

const (
	OutcomeCommitted Outcome = "committed"
	OutcomeRejected  Outcome = "rejected"
)

// RejectReason enumerates the expected, terminal rejection causes. A
// rejection is a normal outcome, not a retryable failure.
type RejectReason string

const (
	ReasonAlreadyClaimed RejectReason = "already_claimed"
	ReasonNoCityDetected RejectReason = "no_city_detected"
	ReasonHomeNotSet     RejectReason = "home_not_set"
)

// Result reports what a claim attempt did. PointsAwarded and FirstDiscovery
// are only meaningful for committed outcomes.
type Result struct {
	Outcome        Outcome      `json:"outcome"`
	PointsAwarded  int64        `json:"points_awarded,omitempty"`
	FirstDiscovery bool         `json:"first_discovery,omitempty"`
	Reason         RejectReason `json:"reason,omitempty"`
}

// Committed builds a success result.
func Committed(points int64, firstDiscovery bool) Result {
	return Result{Outcome: OutcomeCommitted, PointsAwarded: points, FirstDiscovery: firstDiscovery}
}

// Rejected builds a terminal rejection result.
func Rejected(reason RejectReason) Result {
	return Result{Outcome: OutcomeRejected, Reason: reason}
}

// DisplayName tidies a resolved city name for presentation: trimmed, inner
// whitespace collapsed, original casing preserved.
func DisplayName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// NormalizeCityID derives the canonical aggregate key from a display name:
// case-insensitive and whitespace-normalized, so "Tokyo", "tokyo" and
// " New   York " collide with their variants. Returns "" for blank input.
func NormalizeCityID(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToLower(strings.Join(fields, "_"))
}
