//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"wayfarer/internal/geo"
	"wayfarer/internal/profile"
	"wayfarer/internal/profile/store"
	"wayfarer/pkg/platform/sentinel"
	"wayfarer/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.Truncate(context.Background()))
}

func (s *PostgresStoreSuite) newProfile() *profile.Profile {
	return &profile.Profile{
		ID:        uuid.NewString(),
		Username:  "alice",
		Email:     "alice@example.com",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func (s *PostgresStoreSuite) TestCreateAndGet() {
	ctx := context.Background()
	p := s.newProfile()
	s.Require().NoError(s.store.Create(ctx, p))

	got, err := s.store.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(p.ID, got.ID)
	s.Zero(got.Points)
	s.Nil(got.Home)
	s.Empty(got.VisitedCities)
	s.Zero(got.CitiesVisited)
}

func (s *PostgresStoreSuite) TestCreateDuplicateConflicts() {
	ctx := context.Background()
	p := s.newProfile()
	s.Require().NoError(s.store.Create(ctx, p))
	s.ErrorIs(s.store.Create(ctx, p), sentinel.ErrConflict)
}

func (s *PostgresStoreSuite) TestGetMissing() {
	_, err := s.store.Get(context.Background(), "ghost")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestSetHome() {
	ctx := context.Background()
	p := s.newProfile()
	s.Require().NoError(s.store.Create(ctx, p))

	home := geo.Coordinate{Lat: 46.77, Lon: 23.59}
	s.Require().NoError(s.store.SetHome(ctx, p.ID, home))

	got, err := s.store.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Require().NotNil(got.Home)
	s.InDelta(home.Lat, got.Home.Lat, 1e-9)

	s.Run("second set is invalid state", func() {
		s.ErrorIs(s.store.SetHome(ctx, p.ID, home), sentinel.ErrInvalidState)
	})

	s.Run("missing profile is not found", func() {
		s.ErrorIs(s.store.SetHome(ctx, "ghost", home), sentinel.ErrNotFound)
	})
}

// TestConcurrentSetHome verifies that racing set-home requests resolve to
// exactly one winner.
func (s *PostgresStoreSuite) TestConcurrentSetHome() {
	ctx := context.Background()
	p := s.newProfile()
	s.Require().NoError(s.store.Create(ctx, p))

	const goroutines = 20
	var wg sync.WaitGroup
	var wins atomic.Int32

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.store.SetHome(ctx, p.ID, geo.Coordinate{Lat: float64(i) + 1, Lon: 1}); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), wins.Load(), "exactly one set-home should win")
}

func (s *PostgresStoreSuite) TestApplyClaim() {
	ctx := context.Background()
	p := s.newProfile()
	s.Require().NoError(s.store.Create(ctx, p))

	s.Require().NoError(s.store.ApplyClaim(ctx, p.ID, "rome", 250))

	got, err := s.store.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal(int64(250), got.Points)
	s.Equal([]string{"rome"}, got.VisitedCities)
	s.Equal(1, got.CitiesVisited)

	s.Run("replay conflicts and changes nothing", func() {
		s.ErrorIs(s.store.ApplyClaim(ctx, p.ID, "rome", 250), sentinel.ErrConflict)

		got, err := s.store.Get(ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(int64(250), got.Points)
		s.Equal(1, got.CitiesVisited)
	})

	s.Run("second city accumulates", func() {
		s.Require().NoError(s.store.ApplyClaim(ctx, p.ID, "tokyo", 25))

		got, err := s.store.Get(ctx, p.ID)
		s.Require().NoError(err)
		s.Equal(int64(275), got.Points)
		s.Equal([]string{"rome", "tokyo"}, got.VisitedCities)
		s.Equal(2, got.CitiesVisited)
	})
}

func (s *PostgresStoreSuite) TestSetImage() {
	ctx := context.Background()
	p := s.newProfile()
	s.Require().NoError(s.store.Create(ctx, p))

	s.Require().NoError(s.store.SetImage(ctx, p.ID, "https://example.com/a.jpg"))

	got, err := s.store.Get(ctx, p.ID)
	s.Require().NoError(err)
	s.Equal("https://example.com/a.jpg", got.ImageURL)
}
