package drafts

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps drafts in process. Drafts are stored as JSON so callers
// never share maps with the store.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string][]byte
	saved  map[string]time.Time
	now    func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		drafts: make(map[string][]byte),
		saved:  make(map[string]time.Time),
		now:    time.Now,
	}
}

func (s *MemoryStore) Save(_ context.Context, d Draft) error {
	d.SavedAt = s.now()
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[d.Date] = data
	s.saved[d.Date] = d.SavedAt
	return nil
}

func (s *MemoryStore) Load(_ context.Context, date string) (Draft, error) {
	s.mu.Lock()
	data, ok := s.drafts[date]
	s.mu.Unlock()
	if !ok {
		return Draft{}, ErrNotFound
	}

	var d Draft
	if err := json.Unmarshal(data, &d); err != nil {
		return Draft{}, err
	}
	return d, nil
}

func (s *MemoryStore) Clear(_ context.Context, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, date)
	delete(s.saved, date)
	return nil
}

func (s *MemoryStore) List(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dates := make([]string, 0, len(s.drafts))
	for date := range s.drafts {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, nil
}

func (s *MemoryStore) Cleanup(_ context.Context, maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)

	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for date, savedAt := range s.saved {
		if savedAt.Before(cutoff) {
			delete(s.drafts, date)
			delete(s.saved, date)
			removed++
		}
	}
	return removed, nil
}
