// Package session owns the three cross-cutting session axes (location,
// connectivity, locale) and publishes a change event whenever one of them
// moves. Subscribers receive the snapshot taken at publish time and never
// re-read the container mid-flight.
package session

import (
	"context"
	"sync"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// Kind identifies which axis changed.
type Kind int

const (
	LocationChanged Kind = iota + 1
	ConnectivityChanged
	LocaleChanged
)

func (k Kind) String() string {
	switch k {
	case LocationChanged:
		return "location"
	case ConnectivityChanged:
		return "connectivity"
	case LocaleChanged:
		return "locale"
	}
	return "unknown"
}

// Snapshot is a read-only copy of all three axes.
type Snapshot struct {
	Location     models.LocationRecord    `json:"location"`
	Connectivity models.ConnectivityState `json:"connectivity"`
	Locale       models.LocaleState       `json:"locale"`
}

// Event is one published change. From and To are set for
// ConnectivityChanged only.
type Event struct {
	Kind     Kind
	Snapshot Snapshot
	From, To models.Mode
}

// Subscriber handles a published event. Publish waits for every subscriber
// to return.
type Subscriber func(ctx context.Context, ev Event)

// State is the owned session container.
type State struct {
	mu   sync.RWMutex
	snap Snapshot

	subMu  sync.RWMutex
	nextID int
	subs   map[int]Subscriber
}

// New returns a State seeded with initial. Seeding does not publish.
func New(initial Snapshot) *State {
	return &State{snap: initial, subs: make(map[int]Subscriber)}
}

// Snapshot returns the current values of all three axes.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe registers fn and returns a function that removes it.
func (s *State) Subscribe(fn Subscriber) (unsubscribe func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		delete(s.subs, id)
	}
}

// SetLocation replaces the location and publishes LocationChanged, even
// when the record is unchanged.
func (s *State) SetLocation(ctx context.Context, rec models.LocationRecord) {
	s.mu.Lock()
	s.snap.Location = rec
	snap := s.snap
	s.mu.Unlock()
	s.publish(ctx, Event{Kind: LocationChanged, Snapshot: snap})
}

// SetLocale replaces the locale state and publishes LocaleChanged.
func (s *State) SetLocale(ctx context.Context, ls models.LocaleState) {
	s.mu.Lock()
	s.snap.Locale = ls
	snap := s.snap
	s.mu.Unlock()
	s.publish(ctx, Event{Kind: LocaleChanged, Snapshot: snap})
}

// SetConnectivity replaces the connectivity state. It publishes
// ConnectivityChanged only when the effective mode moved, and reports
// whether it did.
func (s *State) SetConnectivity(ctx context.Context, cs models.ConnectivityState) bool {
	s.mu.Lock()
	from := s.snap.Connectivity.EffectiveMode
	s.snap.Connectivity = cs
	snap := s.snap
	s.mu.Unlock()
	if from == cs.EffectiveMode {
		return false
	}
	s.publish(ctx, Event{Kind: ConnectivityChanged, Snapshot: snap, From: from, To: cs.EffectiveMode})
	return true
}

func (s *State) publish(ctx context.Context, ev Event) {
	s.subMu.RLock()
	subs := make([]Subscriber, 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.subMu.RUnlock()

	for _, fn := range subs {
		fn(ctx, ev)
	}
}
