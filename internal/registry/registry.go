// Package registry provides a line matcher registry for classifying the
// lines of a load plan shipment table.
package registry

import (
	"sort"
	"sync"
)

// Result is the common interface for all match results.
type Result interface {
	Kind() string // e.g., "uld_marker", "shipment", "special_note"
}

// Matcher is implemented by each line matcher.
type Matcher interface {
	// Name returns the matcher's unique identifier.
	Name() string

	// QuickCheck performs a fast string check before expensive regex.
	// Returns true if the line MIGHT match (false = definitely skip).
	// This should use strings.Contains/HasPrefix, NOT regex.
	QuickCheck(line string) bool

	// Priority determines the order in which matchers are tried.
	// Lower number = checked first.
	Priority() int

	// Match attempts to match the line, returns nil if not applicable.
	Match(line string) Result
}

// Registry holds matchers in priority order.
type Registry struct {
	mu       sync.RWMutex
	matchers []Matcher

	// sorted tracks whether matchers have been sorted
	sorted bool
}

// New creates a new Registry instance.
func New() *Registry {
	return &Registry{}
}

// Register adds a matcher to the registry.
func (r *Registry) Register(m Matcher) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.matchers = append(r.matchers, m)
	r.sorted = false
}

// Sort sorts matchers by priority. Call before dispatching.
// Matchers with equal priority keep registration order.
func (r *Registry) Sort() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sorted {
		return
	}

	sort.SliceStable(r.matchers, func(i, j int) bool {
		return r.matchers[i].Priority() < r.matchers[j].Priority()
	})

	r.sorted = true
}

// DispatchFirst returns the first result in priority order, or nil if no
// matcher accepts the line.
// Note: Sort() should be called before DispatchFirst(). If it has not been
// called, matchers run in registration order.
func (r *Registry) DispatchFirst(line string) Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.matchers {
		if !m.QuickCheck(line) {
			continue
		}
		if result := m.Match(line); result != nil {
			return result
		}
	}

	return nil
}

// Dispatch returns every result for the line. Used by tracing to show
// overlapping matchers.
func (r *Registry) Dispatch(line string) []Result {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []Result
	for _, m := range r.matchers {
		if !m.QuickCheck(line) {
			continue
		}
		if result := m.Match(line); result != nil {
			results = append(results, result)
		}
	}
	return results
}

// Count returns the number of registered matchers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matchers)
}

// AllMatchers returns all registered matchers in current order.
func (r *Registry) AllMatchers() []Matcher {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Matcher, len(r.matchers))
	copy(out, r.matchers)
	return out
}
