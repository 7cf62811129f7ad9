package alert

import (
	"sort"
	"sync"
	"time"
)

// Store is the in-memory alert state, keyed by alert ID.
//
// The sync engine is the only writer. Reads may come from other goroutines
// (the status API), so the map is guarded by a RWMutex.
type Store struct {
	mu   sync.RWMutex
	data map[string]Alert
}

// NewStore returns an empty Store.
func NewStore() *Store {
	return &Store{data: make(map[string]Alert)}
}

// Put stores or fully replaces the alert under a.ID and reports whether an
// entry for that ID already existed.
func (s *Store) Put(a Alert) (existed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, existed = s.data[a.ID]
	s.data[a.ID] = a.clone()
	return existed
}

// Get returns the alert for id and whether it was found.
func (s *Store) Get(id string) (Alert, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.data[id]
	if !ok {
		return Alert{}, false
	}
	return a.clone(), true
}

// Len returns the number of known alerts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// List returns copies of all alerts matching keep (all when keep is nil),
// ordered by creation time then ID.
func (s *Store) List(keep func(Alert) bool) []Alert {
	s.mu.RLock()
	out := make([]Alert, 0, len(s.data))
	for _, a := range s.data {
		if keep == nil || keep(a) {
			out = append(out, a.clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		ci, cj := out[i].CreatedAt, out[j].CreatedAt
		switch {
		case ci != nil && cj != nil && !ci.Equal(*cj):
			return ci.Before(*cj)
		case ci == nil && cj != nil:
			return false
		case ci != nil && cj == nil:
			return true
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// LatestUpdate returns the maximum UpdatedAt across all alerts. It returns
// false when the store is empty or no alert carries an UpdatedAt.
func (s *Store) LatestUpdate() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var (
		latest time.Time
		found  bool
	)
	for _, a := range s.data {
		if a.UpdatedAt == nil {
			continue
		}
		if !found || a.UpdatedAt.After(latest) {
			latest = *a.UpdatedAt
			found = true
		}
	}
	return latest, found
}
