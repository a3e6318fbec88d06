package service

import (
	"context"
	"errors"

	"wayfarer/internal/geo"
	"wayfarer/internal/platform/metrics"
	"wayfarer/internal/profile"
	dErrors "wayfarer/pkg/domain-errors"
	"wayfarer/pkg/platform/sentinel"
	"wayfarer/pkg/requestcontext"
)

// Store is the persistence port for the user aggregate outside the claim
// transaction. SetHome is a store-level compare-and-set so two racing "set
// home" requests cannot both win.
type Store interface {
	Create(ctx context.Context, p *profile.Profile) error
	Get(ctx context.Context, userID string) (*profile.Profile, error)
	SetHome(ctx context.Context, userID string, home geo.Coordinate) error
	SetImage(ctx context.Context, userID string, imageURL string) error
}

// FriendCounter is the opaque social-graph read. The friend graph itself is
// owned by another system; we only ever display a count.
type FriendCounter interface {
	CountFriends(ctx context.Context, userID string) (int, error)
}

// Service exposes profile reads and the profile-edit operations that live
// outside the claim coordinator.
type Service struct {
	store   Store
	friends FriendCounter
	metrics *metrics.Metrics
}

func NewService(store Store, friends FriendCounter, m *metrics.Metrics) *Service {
	return &Service{store: store, friends: friends, metrics: m}
}

// Create materializes the signup projection: empty visited set, home unset.
func (s *Service) Create(ctx context.Context, userID, username, email string) (*profile.Profile, error) {
	if userID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user id is required")
	}
	p := &profile.Profile{
		ID:        userID,
		Username:  username,
		Email:     email,
		CreatedAt: requestcontext.Now(ctx),
	}
	if err := s.store.Create(ctx, p); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "profile already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "create profile")
	}
	if s.metrics != nil {
		s.metrics.ProfilesCreated.Inc()
	}
	return p, nil
}

// Get returns the profile plus, when a friend counter is wired, the opaque
// friend count. A failing friend lookup degrades to zero rather than failing
// the profile read.
func (s *Service) Get(ctx context.Context, userID string) (*profile.Profile, int, error) {
	p, err := s.store.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, 0, dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "get profile")
	}

	friendCount := 0
	if s.friends != nil {
		if n, err := s.friends.CountFriends(ctx, userID); err == nil {
			friendCount = n
		}
	}
	return p, friendCount, nil
}

// SetHome establishes the home coordinate exactly once.
func (s *Service) SetHome(ctx context.Context, userID string, home geo.Coordinate) error {
	if home.IsZero() {
		return dErrors.New(dErrors.CodeBadRequest, "invalid home location coordinates")
	}
	if err := s.store.SetHome(ctx, userID, home); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return dErrors.New(dErrors.CodeNotFound, "profile not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return dErrors.New(dErrors.CodePreconditionFailed, "home location already set")
		default:
			return dErrors.Wrap(err, dErrors.CodeInternal, "set home")
		}
	}
	if s.metrics != nil {
		s.metrics.HomesSet.Inc()
	}
	return nil
}

// SetImage updates the stored profile picture reference.
func (s *Service) SetImage(ctx context.Context, userID, imageURL string) error {
	if imageURL == "" {
		return dErrors.New(dErrors.CodeBadRequest, "image url is required")
	}
	if err := s.store.SetImage(ctx, userID, imageURL); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "profile not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "set image")
	}
	return nil
}
