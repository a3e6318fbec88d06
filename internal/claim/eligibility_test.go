package claim

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wayfarer/internal/geo"
	"wayfarer/internal/profile"
)

func settledProfile(visited ...string) *profile.Profile {
	return &profile.Profile{
		ID:            "u1",
		Home:          &geo.Coordinate{Lat: 46.77, Lon: 23.59},
		VisitedCities: visited,
		CitiesVisited: len(visited),
	}
}

func TestEvaluate(t *testing.T) {
	t.Run("claimable new city", func(t *testing.T) {
		cityID, reason, ok := Evaluate(settledProfile(), "Rome")
		assert.True(t, ok)
		assert.Equal(t, "rome", cityID)
		assert.Empty(t, reason)
	})

	t.Run("blank city name", func(t *testing.T) {
		_, reason, ok := Evaluate(settledProfile(), "")
		assert.False(t, ok)
		assert.Equal(t, ReasonNoCityDetected, reason)
	})

	t.Run("whitespace city name", func(t *testing.T) {
		_, reason, ok := Evaluate(settledProfile(), "   ")
		assert.False(t, ok)
		assert.Equal(t, ReasonNoCityDetected, reason)
	})

	t.Run("home not set", func(t *testing.T) {
		p := &profile.Profile{ID: "u1"}
		_, reason, ok := Evaluate(p, "Rome")
		assert.False(t, ok)
		assert.Equal(t, ReasonHomeNotSet, reason)
	})

	t.Run("already visited", func(t *testing.T) {
		_, reason, ok := Evaluate(settledProfile("rome"), "Rome")
		assert.False(t, ok)
		assert.Equal(t, ReasonAlreadyClaimed, reason)
	})

	t.Run("case variants collide with visited set", func(t *testing.T) {
		_, reason, ok := Evaluate(settledProfile("new_york"), "NEW  YORK")
		assert.False(t, ok)
		assert.Equal(t, ReasonAlreadyClaimed, reason)
	})

	t.Run("blank wins over unset home", func(t *testing.T) {
		p := &profile.Profile{ID: "u1"}
		_, reason, ok := Evaluate(p, "")
		assert.False(t, ok)
		assert.Equal(t, ReasonNoCityDetected, reason)
	})
}
