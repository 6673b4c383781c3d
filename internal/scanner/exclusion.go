package scanner

import (
	"sort"
	"sync"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// ExclusionSet holds the contracts that have already been bet on during
// this process lifetime. It only grows.
type ExclusionSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

// NewExclusionSet creates an empty ExclusionSet.
func NewExclusionSet() *ExclusionSet {
	return &ExclusionSet{ids: make(map[string]struct{})}
}

// Add inserts ids. Adding an id twice is a no-op.
func (s *ExclusionSet) Add(ids ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.ids[id] = struct{}{}
	}
}

// Contains reports whether id is excluded.
func (s *ExclusionSet) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

// Len returns the number of excluded contracts.
func (s *ExclusionSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Snapshot returns the excluded ids in sorted order.
func (s *ExclusionSet) Snapshot() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	s.mu.RUnlock()

	sort.Strings(out)
	return out
}

// Calendar is the fixed set of dates on which the scanner stands down.
type Calendar struct {
	dates map[domain.MonthDay]struct{}
}

// NewCalendar builds a Calendar from dates.
func NewCalendar(dates ...domain.MonthDay) Calendar {
	c := Calendar{dates: make(map[domain.MonthDay]struct{}, len(dates))}
	for _, d := range dates {
		c.dates[d] = struct{}{}
	}
	return c
}

// Contains reports whether day is an excluded date.
func (c Calendar) Contains(day domain.MonthDay) bool {
	_, ok := c.dates[day]
	return ok
}

// Dates returns the excluded dates in calendar order.
func (c Calendar) Dates() []domain.MonthDay {
	out := make([]domain.MonthDay, 0, len(c.dates))
	for d := range c.dates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
