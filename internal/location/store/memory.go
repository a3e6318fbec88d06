package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"wayfarer/internal/location"
	"wayfarer/pkg/platform/sentinel"
)

// InMemoryStore keeps location aggregates in a map, for unit tests and dev
// mode. The in-memory claim tx serializes mutations with its own coarse lock.
type InMemoryStore struct {
	mu        sync.RWMutex
	locations map[string]*location.Location
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{locations: make(map[string]*location.Location)}
}

func (s *InMemoryStore) Get(_ context.Context, cityID string) (*location.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	loc, ok := s.locations[cityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *loc
	return &cp, nil
}

func (s *InMemoryStore) Create(_ context.Context, loc *location.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.locations[loc.CityID]; ok {
		return sentinel.ErrConflict
	}
	cp := *loc
	s.locations[loc.CityID] = &cp
	return nil
}

// RecordVisit bumps the shared counters for an existing aggregate. Identity
// metadata is left untouched.
func (s *InMemoryStore) RecordVisit(_ context.Context, cityID string, award int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	loc, ok := s.locations[cityID]
	if !ok {
		return sentinel.ErrNotFound
	}
	loc.TotalVisits++
	loc.TotalPointsAwarded += award
	loc.LastVisitedAt = at
	return nil
}

// TopByPoints returns up to limit locations ordered by total points awarded.
func (s *InMemoryStore) TopByPoints(_ context.Context, limit int) ([]location.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]location.Location, 0, len(s.locations))
	for _, loc := range s.locations {
		out = append(out, *loc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPointsAwarded != out[j].TotalPointsAwarded {
			return out[i].TotalPointsAwarded > out[j].TotalPointsAwarded
		}
		return out[i].CityID < out[j].CityID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
