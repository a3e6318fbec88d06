package store

import (
	"context"
	"sync"

	"wayfarer/internal/geo"
	"wayfarer/internal/profile"
	"wayfarer/pkg/platform/sentinel"
)

// InMemoryStore keeps profiles in a map. It backs unit tests and dev mode and
// doubles as the transactional profile handle for the in-memory claim tx,
// which serializes access with its own coarse lock.
type InMemoryStore struct {
	mu       sync.RWMutex
	profiles map[string]*profile.Profile
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{profiles: make(map[string]*profile.Profile)}
}

func (s *InMemoryStore) Create(_ context.Context, p *profile.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return sentinel.ErrConflict
	}
	s.profiles[p.ID] = clone(p)
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, userID string) (*profile.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(p), nil
}

func (s *InMemoryStore) SetHome(_ context.Context, userID string, home geo.Coordinate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if p.HasSetHome() {
		return sentinel.ErrInvalidState
	}
	h := home
	p.Home = &h
	return nil
}

func (s *InMemoryStore) SetImage(_ context.Context, userID string, imageURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	p.ImageURL = imageURL
	return nil
}

// ApplyClaim is the compound claim mutation used inside the claim transaction.
func (s *InMemoryStore) ApplyClaim(_ context.Context, userID, cityID string, award int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return sentinel.ErrNotFound
	}
	return p.ApplyClaim(cityID, award)
}

func clone(p *profile.Profile) *profile.Profile {
	cp := *p
	if p.Home != nil {
		h := *p.Home
		cp.Home = &h
	}
	cp.VisitedCities = append([]string(nil), p.VisitedCities...)
	return &cp
}
