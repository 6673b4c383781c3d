// Package target keeps the set of wagerable contracts (targets) up to date:
// a mutex-guarded Registry shared with the scanner, and the Updater loop that
// discovers new targets on the venue and expires old ones.
package target

import (
	"sort"
	"sync"

	"github.com/alanyoungcy/calabi/internal/domain"
)

// Registry maps contract id to TargetIncident. Every method takes the single
// registry lock for exactly the duration of its map access; callers must not
// expect consistency across two calls.
type Registry struct {
	mu      sync.Mutex
	targets map[string]domain.TargetIncident
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		targets: make(map[string]domain.TargetIncident),
	}
}

// Len returns the number of live targets.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.targets)
}

// Contains reports whether a target for contractID is registered.
func (r *Registry) Contains(contractID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.targets[contractID]
	return ok
}

// Add inserts t unless its contract is already registered. It reports
// whether the target was inserted. Existing entries are never replaced.
func (r *Registry) Add(t domain.TargetIncident) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.targets[t.ContractID]; ok {
		return false
	}
	r.targets[t.ContractID] = t
	return true
}

// Prune removes every target whose date has fully elapsed relative to today
// and returns how many were removed. Targets dated today are kept.
func (r *Registry) Prune(today domain.MonthDay) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, t := range r.targets {
		if t.IsPast(today) {
			delete(r.targets, id)
			removed++
		}
	}
	return removed
}

// Matching returns a snapshot of the targets for today and incidentType,
// ordered by contract id.
func (r *Registry) Matching(today domain.MonthDay, incidentType domain.IncidentType) []domain.TargetIncident {
	r.mu.Lock()
	var out []domain.TargetIncident
	for _, t := range r.targets {
		if t.Matches(today, incidentType) {
			out = append(out, t)
		}
	}
	r.mu.Unlock()

	sortByContract(out)
	return out
}

// Snapshot returns a copy of every registered target, ordered by contract
// id.
func (r *Registry) Snapshot() []domain.TargetIncident {
	r.mu.Lock()
	out := make([]domain.TargetIncident, 0, len(r.targets))
	for _, t := range r.targets {
		out = append(out, t)
	}
	r.mu.Unlock()

	sortByContract(out)
	return out
}

func sortByContract(ts []domain.TargetIncident) {
	sort.Slice(ts, func(i, j int) bool {
		return ts[i].ContractID < ts[j].ContractID
	})
}
