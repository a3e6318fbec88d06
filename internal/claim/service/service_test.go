package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/sync/errgroup"

	"wayfarer/internal/claim"
	"wayfarer/internal/events"
	eventstore "wayfarer/internal/events/store"
	"wayfarer/internal/geo"
	locationstore "wayfarer/internal/location/store"
	"wayfarer/internal/profile"
	profilestore "wayfarer/internal/profile/store"
	dErrors "wayfarer/pkg/domain-errors"
	"wayfarer/pkg/platform/sentinel"
	"wayfarer/pkg/requestcontext"
)

// pointAtKm returns a coordinate roughly km kilometers north of the origin,
// nudged off exact scoring boundaries.
func pointAtKm(km float64) geo.Coordinate {
	return geo.Coordinate{Lat: km * 1.00001 / 111.194926644, Lon: 0}
}

type ClaimServiceSuite struct {
	suite.Suite
	profiles  *profilestore.InMemoryStore
	locations *locationstore.InMemoryStore
	outbox    *eventstore.InMemoryOutbox
	svc       *Service
}

func TestClaimServiceSuite(t *testing.T) {
	suite.Run(t, new(ClaimServiceSuite))
}

func (s *ClaimServiceSuite) SetupTest() {
	s.profiles = profilestore.NewInMemory()
	s.locations = locationstore.NewInMemory()
	s.outbox = eventstore.NewInMemory()

	stores := Stores{Profiles: s.profiles, Locations: s.locations, Events: s.outbox}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.svc = NewService(NewMemoryTx(stores), stores, logger, nil)
}

func (s *ClaimServiceSuite) seedUser(id string, home *geo.Coordinate) {
	p := &profile.Profile{ID: id, Username: id, CreatedAt: time.Now()}
	s.Require().NoError(s.profiles.Create(context.Background(), p))
	if home != nil {
		s.Require().NoError(s.profiles.SetHome(context.Background(), id, *home))
	}
}

func (s *ClaimServiceSuite) TestFirstDiscoveryAward() {
	// Home at (0,0), current 100 km away, Rome never claimed by anyone:
	// 50 distance points plus the 200 discovery bonus.
	ctx := context.Background()
	s.seedUser("alice", &geo.Coordinate{Lat: 0, Lon: 0.0001})

	res, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Rome", Position: pointAtKm(100)})
	s.Require().NoError(err)
	s.Equal(claim.OutcomeCommitted, res.Outcome)
	s.True(res.FirstDiscovery)
	s.Equal(int64(250), res.PointsAwarded)

	p, err := s.profiles.Get(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(250), p.Points)
	s.Equal([]string{"rome"}, p.VisitedCities)
	s.Equal(1, p.CitiesVisited)

	loc, err := s.locations.Get(ctx, "rome")
	s.Require().NoError(err)
	s.Equal(int64(1), loc.TotalVisits)
	s.Equal(int64(250), loc.TotalPointsAwarded)
	s.Equal("Rome", loc.City)
}

func (s *ClaimServiceSuite) TestNoBonusForDiscoveredCity() {
	ctx := context.Background()
	s.seedUser("alice", &geo.Coordinate{Lat: 0, Lon: 0.0001})
	s.seedUser("bob", &geo.Coordinate{Lat: 0, Lon: 0.0001})

	// Bob discovered Rome earlier; Alice gets distance points only.
	_, err := s.svc.Claim(ctx, claim.Request{UserID: "bob", CityName: "Rome", Position: pointAtKm(100)})
	s.Require().NoError(err)

	res, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Rome", Position: pointAtKm(100)})
	s.Require().NoError(err)
	s.Equal(claim.OutcomeCommitted, res.Outcome)
	s.False(res.FirstDiscovery)
	s.Equal(int64(50), res.PointsAwarded)

	loc, err := s.locations.Get(ctx, "rome")
	s.Require().NoError(err)
	s.Equal(int64(2), loc.TotalVisits)
	s.Equal(int64(300), loc.TotalPointsAwarded)
}

func (s *ClaimServiceSuite) TestNearbyCityHitsFloor() {
	ctx := context.Background()
	s.seedUser("alice", &geo.Coordinate{Lat: 0, Lon: 0.0001})
	s.seedUser("bob", &geo.Coordinate{Lat: 0, Lon: 0.0001})

	_, err := s.svc.Claim(ctx, claim.Request{UserID: "bob", CityName: "Turda", Position: pointAtKm(10)})
	s.Require().NoError(err)

	res, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Turda", Position: pointAtKm(10)})
	s.Require().NoError(err)
	s.Equal(int64(25), res.PointsAwarded)
}

func (s *ClaimServiceSuite) TestAlreadyClaimedRejects() {
	ctx := context.Background()
	s.seedUser("alice", &geo.Coordinate{Lat: 0, Lon: 0.0001})

	first, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Rome", Position: pointAtKm(100)})
	s.Require().NoError(err)
	s.Equal(claim.OutcomeCommitted, first.Outcome)

	// Replaying the identical request is a terminal rejection, not an error,
	// and changes nothing.
	replay, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Rome", Position: pointAtKm(100)})
	s.Require().NoError(err)
	s.Equal(claim.OutcomeRejected, replay.Outcome)
	s.Equal(claim.ReasonAlreadyClaimed, replay.Reason)

	p, err := s.profiles.Get(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(250), p.Points)
	s.Equal(1, p.CitiesVisited)

	loc, err := s.locations.Get(ctx, "rome")
	s.Require().NoError(err)
	s.Equal(int64(1), loc.TotalVisits)
	s.Equal(int64(250), loc.TotalPointsAwarded)

	// Case variants of the same city collide on the visited set.
	variant, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "ROME", Position: pointAtKm(100)})
	s.Require().NoError(err)
	s.Equal(claim.ReasonAlreadyClaimed, variant.Reason)
}

func (s *ClaimServiceSuite) TestBlankCityRejectsBeforeTransaction() {
	ctx := context.Background()
	// No user seeded at all: a blank city must reject before any store read.
	res, err := s.svc.Claim(ctx, claim.Request{UserID: "ghost", CityName: "   "})
	s.Require().NoError(err)
	s.Equal(claim.OutcomeRejected, res.Outcome)
	s.Equal(claim.ReasonNoCityDetected, res.Reason)
}

func (s *ClaimServiceSuite) TestHomeNotSetRejects() {
	ctx := context.Background()
	s.seedUser("alice", nil)

	res, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Rome", Position: pointAtKm(100)})
	s.Require().NoError(err)
	s.Equal(claim.OutcomeRejected, res.Outcome)
	s.Equal(claim.ReasonHomeNotSet, res.Reason)

	_, err = s.locations.Get(ctx, "rome")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *ClaimServiceSuite) TestMissingProfileIsTerminal() {
	_, err := s.svc.Claim(context.Background(), claim.Request{UserID: "ghost", CityName: "Rome"})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
	s.False(dErrors.Retryable(err))
}

func (s *ClaimServiceSuite) TestConcurrentClaimsOnSameNewCity() {
	// N users race on the same never-claimed city: exactly one discovery
	// bonus, TotalVisits lands at exactly N, and no update is lost.
	ctx := context.Background()
	const n = 32
	for i := 0; i < n; i++ {
		s.seedUser(fmt.Sprintf("user-%02d", i), &geo.Coordinate{Lat: 0, Lon: 0.0001})
	}

	results := make([]claim.Result, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			res, err := s.svc.Claim(ctx, claim.Request{
				UserID:   fmt.Sprintf("user-%02d", i),
				CityName: "Samarkand",
				Position: pointAtKm(100),
			})
			results[i] = res
			return err
		})
	}
	s.Require().NoError(g.Wait())

	discoveries := 0
	for _, res := range results {
		s.Equal(claim.OutcomeCommitted, res.Outcome)
		if res.FirstDiscovery {
			discoveries++
			s.Equal(int64(250), res.PointsAwarded)
		} else {
			s.Equal(int64(50), res.PointsAwarded)
		}
	}
	s.Equal(1, discoveries)

	loc, err := s.locations.Get(ctx, "samarkand")
	s.Require().NoError(err)
	s.Equal(int64(n), loc.TotalVisits)
	s.Equal(int64(250+50*(n-1)), loc.TotalPointsAwarded)
}

func (s *ClaimServiceSuite) TestDoubleTapSameUser() {
	// The same user racing against themselves commits at most once.
	ctx := context.Background()
	s.seedUser("alice", &geo.Coordinate{Lat: 0, Lon: 0.0001})

	const attempts = 8
	results := make([]claim.Result, attempts)
	var g errgroup.Group
	for i := 0; i < attempts; i++ {
		g.Go(func() error {
			res, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Rome", Position: pointAtKm(100)})
			results[i] = res
			return err
		})
	}
	s.Require().NoError(g.Wait())

	committed := 0
	for _, res := range results {
		if res.Outcome == claim.OutcomeCommitted {
			committed++
		} else {
			s.Equal(claim.ReasonAlreadyClaimed, res.Reason)
		}
	}
	s.Equal(1, committed)

	p, err := s.profiles.Get(ctx, "alice")
	s.Require().NoError(err)
	s.Equal(int64(250), p.Points)
	s.Equal(1, p.CitiesVisited)
}

func (s *ClaimServiceSuite) TestClaimEmitsOutboxEvent() {
	ctx := requestcontext.WithTime(context.Background(), time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC))
	s.seedUser("alice", &geo.Coordinate{Lat: 0, Lon: 0.0001})

	_, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Rome", Position: pointAtKm(100)})
	s.Require().NoError(err)

	evts := s.outbox.Events()
	s.Require().Len(evts, 1)
	s.Equal(events.TypeClaimCommitted, evts[0].Type)
	s.Equal("alice", evts[0].UserID)
	s.Equal("rome", evts[0].CityID)
	s.Equal(int64(250), evts[0].Points)
	s.True(evts[0].FirstDiscovery)
	s.Equal(time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC), evts[0].At)
}

func (s *ClaimServiceSuite) TestRejectionEmitsNoEvent() {
	ctx := context.Background()
	s.seedUser("alice", nil)

	_, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Rome", Position: pointAtKm(100)})
	s.Require().NoError(err)
	s.Empty(s.outbox.Events())
}

func (s *ClaimServiceSuite) TestRequestScopedTimeStampsAggregate() {
	at := time.Date(2026, 8, 28, 9, 30, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), at)
	s.seedUser("alice", &geo.Coordinate{Lat: 0, Lon: 0.0001})

	_, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Rome", Position: pointAtKm(100)})
	s.Require().NoError(err)

	loc, err := s.locations.Get(ctx, "rome")
	s.Require().NoError(err)
	s.Equal(at, loc.LastVisitedAt)
}

func (s *ClaimServiceSuite) TestPreview() {
	ctx := context.Background()
	s.seedUser("alice", &geo.Coordinate{Lat: 0, Lon: 0.0001})

	s.Run("quotes discovery bonus for unseen city", func() {
		res, err := s.svc.Preview(ctx, "alice", "Rome", pointAtKm(100))
		s.Require().NoError(err)
		s.Equal(claim.OutcomeCommitted, res.Outcome)
		s.Equal(int64(250), res.PointsAwarded)
	})

	s.Run("does not mutate anything", func() {
		_, err := s.locations.Get(ctx, "rome")
		s.ErrorIs(err, sentinel.ErrNotFound)

		p, err := s.profiles.Get(ctx, "alice")
		s.Require().NoError(err)
		s.Zero(p.Points)
	})

	s.Run("rejects for visited city", func() {
		_, err := s.svc.Claim(ctx, claim.Request{UserID: "alice", CityName: "Rome", Position: pointAtKm(100)})
		s.Require().NoError(err)

		res, err := s.svc.Preview(ctx, "alice", "Rome", pointAtKm(100))
		s.Require().NoError(err)
		s.Equal(claim.ReasonAlreadyClaimed, res.Reason)
	})
}
