// Package registry tracks coverage-mark hits per goroutine.
//
// Each goroutine gets its own hit counters and armed-mark set, so tests
// running in parallel never observe each other's hits. State is keyed by
// goroutine ID, created lazily on first use, and pruned once the last open
// guard in the process closes.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/petermattis/goid"
)

// ErrDoubleArm is returned by Arm when the mark already has an open guard on
// the calling goroutine.
var ErrDoubleArm = errors.New("already has an open guard on this goroutine")

var defaultRegistry = New()

// RecordHit increments the calling goroutine's counter for the mark.
func RecordHit(mark string) {
	defaultRegistry.RecordHit(mark)
}

// Count returns the calling goroutine's counter for the mark (0 if absent).
func Count(mark string) int {
	return defaultRegistry.Count(mark)
}

// Reset clears the calling goroutine's counter for the mark.
func Reset(mark string) {
	defaultRegistry.Reset(mark)
}

// Arm registers the mark as under an open guard on the calling goroutine.
func Arm(mark string) error {
	return defaultRegistry.Arm(mark)
}

// Disarm removes the mark from the calling goroutine's armed set.
func Disarm(mark string) {
	defaultRegistry.Disarm(mark)
}

// OpenGuards returns the number of guards currently open across all goroutines.
func OpenGuards() int {
	return defaultRegistry.OpenGuards()
}

// state holds one goroutine's counters and armed marks.
type state struct {
	hits  map[string]int
	armed map[string]struct{}
}

func newState() *state {
	return &state{
		hits:  make(map[string]int),
		armed: make(map[string]struct{}),
	}
}

func (s *state) empty() bool {
	return len(s.hits) == 0 && len(s.armed) == 0
}

// Registry maintains per-goroutine hit counters and armed-mark sets.
// The zero value is not usable; call New.
type Registry struct {
	// open counts guards currently open across all goroutines. RecordHit
	// checks it before taking the lock, so instrumented production code pays
	// a single atomic load when nothing is being checked.
	open atomic.Int64

	mu     sync.RWMutex
	states map[int64]*state
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{states: make(map[int64]*state)}
}

// RecordHit increments the calling goroutine's counter for the mark by one.
// Hits on other goroutines are unaffected. When no guard is open anywhere in
// the process the hit is dropped without touching any state; a guard opened
// later performs its own reset, so dropped hits are never observable.
func (r *Registry) RecordHit(mark string) {
	if r.open.Load() == 0 {
		return
	}
	gid := goid.Get()
	r.mu.Lock()
	s := r.states[gid]
	if s == nil {
		s = newState()
		r.states[gid] = s
	}
	s.hits[mark]++
	r.mu.Unlock()
}

// Count returns the calling goroutine's counter for the mark, 0 if absent.
func (r *Registry) Count(mark string) int {
	gid := goid.Get()
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := r.states[gid]
	if s == nil {
		return 0
	}
	return s.hits[mark]
}

// Reset clears the calling goroutine's counter for the mark to absent.
func (r *Registry) Reset(mark string) {
	gid := goid.Get()
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.states[gid]
	if s == nil {
		return
	}
	delete(s.hits, mark)
	if s.empty() {
		delete(r.states, gid)
	}
}

// Arm registers the mark in the calling goroutine's armed set. It returns an
// error wrapping ErrDoubleArm when the mark is already armed there; arming
// the same mark on a different goroutine is fine.
func (r *Registry) Arm(mark string) error {
	gid := goid.Get()
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.states[gid]
	if s == nil {
		s = newState()
		r.states[gid] = s
	}
	if _, dup := s.armed[mark]; dup {
		return fmt.Errorf("mark %q %w", mark, ErrDoubleArm)
	}
	s.armed[mark] = struct{}{}
	r.open.Add(1)
	return nil
}

// Disarm removes the mark from the calling goroutine's armed set. When the
// last open guard in the process closes, all idle per-goroutine state is
// dropped; this is the closest Go equivalent of thread-local teardown and
// keeps long test runs from accumulating state for dead goroutines.
func (r *Registry) Disarm(mark string) {
	gid := goid.Get()
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.states[gid]
	if s == nil {
		return
	}
	if _, ok := s.armed[mark]; !ok {
		return
	}
	delete(s.armed, mark)
	if s.empty() {
		delete(r.states, gid)
	}
	if r.open.Add(-1) == 0 {
		for gid, s := range r.states {
			if len(s.armed) == 0 {
				delete(r.states, gid)
			}
		}
	}
}

// OpenGuards returns the number of guards currently open across all goroutines.
func (r *Registry) OpenGuards() int {
	return int(r.open.Load())
}
