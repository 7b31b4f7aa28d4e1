package state

import (
	"fmt"
	"math"
	"sync"

	"github.com/nerrad567/lumen-core/internal/show"
)

// Listener receives the full state after every successful change. It is
// called from the writer's goroutine and must not block.
type Listener func(RuntimeState)

// Store owns the runtime state.
//
// Writes are serialised: ApplyUpdate and Reinitialize run one at a time and
// notify listeners in write order. Readers get deep copies and never observe
// a half-merged update.
type Store struct {
	writeMu sync.Mutex

	mu    sync.RWMutex
	model *show.Model
	state RuntimeState

	listeners []Listener
}

// New creates a store holding the default state of model.
func New(model *show.Model) *Store {
	return &Store{
		model: model,
		state: defaults(model),
	}
}

// Subscribe registers a listener. Register listeners before the store is
// shared.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() RuntimeState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Clone()
}

// View returns the model together with a copy of the state that belongs to
// it. The resolver uses this so a configuration change never pairs an old
// model with new state.
func (s *Store) View() (*show.Model, RuntimeState) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model, s.state.Clone()
}

// Model returns the model the state is built on.
func (s *Store) Model() *show.Model {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model
}

// ApplyUpdate validates u against the model and merges it.
//
// Merge rules:
//   - Blackout replaces the current flag
//   - Looks and Fixtures merge key by key; untouched keys keep their values
//   - OverriddenFixtures replaces per fixture; a nil or inactive entry
//     clears that fixture's override
//
// Channel values are clamped to 0-100 and look levels to 0-1. An update
// naming any unknown fixture, channel or look, or carrying NaN or an
// infinity, is rejected whole and leaves the state untouched. Listeners run
// after a successful merge, in write order, before ApplyUpdate returns.
//
// Parameters:
//   - u: Partial update, usually from DecodeUpdate
//
// Returns:
//   - RuntimeState: Copy of the state after the merge
//   - error: ErrUnknownFixture, ErrUnknownChannel, ErrUnknownLook or
//     ErrInvalidValue, wrapped with the offending key
func (s *Store) ApplyUpdate(u Update) (RuntimeState, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if err := validate(s.model, u); err != nil {
		s.mu.Unlock()
		return RuntimeState{}, err
	}
	merge(&s.state, u)
	snap := s.state.Clone()
	listeners := s.listeners
	s.mu.Unlock()

	s.notify(listeners, snap)
	return snap, nil
}

// Reinitialize switches to a new model. Values for fixtures, channels and
// looks that still exist are kept; new ones start at their defaults and
// vanished ones are dropped.
func (s *Store) Reinitialize(model *show.Model) RuntimeState {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	next := defaults(model)
	carryOver(&next, s.state, model)
	s.model = model
	s.state = next
	snap := s.state.Clone()
	listeners := s.listeners
	s.mu.Unlock()

	s.notify(listeners, snap)
	return snap
}

func (s *Store) notify(listeners []Listener, snap RuntimeState) {
	for _, l := range listeners {
		l(snap.Clone())
	}
}

// defaults builds the rest state of a model: every channel at its profile
// default, every look at zero, no overrides, no blackout.
func defaults(model *show.Model) RuntimeState {
	st := RuntimeState{
		Fixtures:           make(map[string]ChannelValues),
		Looks:              make(map[string]float64),
		OverriddenFixtures: make(map[string]Override),
	}
	if model == nil {
		return st
	}
	for _, pf := range model.Fixtures() {
		vals := make(ChannelValues, len(pf.Channels))
		for _, ch := range pf.Channels {
			vals[ch.Name] = ch.Default
		}
		st.Fixtures[pf.Fixture.ID] = vals
	}
	for _, l := range model.Looks() {
		st.Looks[l.ID] = 0
	}
	return st
}

func carryOver(next *RuntimeState, prev RuntimeState, model *show.Model) {
	next.Blackout = prev.Blackout
	for id, vals := range prev.Fixtures {
		dst, ok := next.Fixtures[id]
		if !ok {
			continue
		}
		for ch, v := range vals {
			if _, ok := dst[ch]; ok {
				dst[ch] = v
			}
		}
	}
	for id, v := range prev.Looks {
		if _, ok := next.Looks[id]; ok {
			next.Looks[id] = v
		}
	}
	for id, o := range prev.OverriddenFixtures {
		if _, ok := model.Fixture(id); !ok || !o.Active {
			continue
		}
		kept := Override{Active: true}
		for _, l := range o.Looks {
			if _, ok := model.Look(l.ID); ok {
				kept.Looks = append(kept.Looks, l)
			}
		}
		next.OverriddenFixtures[id] = kept
	}
}

func validate(model *show.Model, u Update) error {
	for fid, vals := range u.Fixtures {
		pf, ok := model.Fixture(fid)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFixture, fid)
		}
		for ch, v := range vals {
			if _, ok := pf.Channel(ch); !ok {
				return fmt.Errorf("%w: %q on fixture %q", ErrUnknownChannel, ch, fid)
			}
			if !finite(v) {
				return fmt.Errorf("%w: %s/%s", ErrInvalidValue, fid, ch)
			}
		}
	}
	for lid, v := range u.Looks {
		if _, ok := model.Look(lid); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLook, lid)
		}
		if !finite(v) {
			return fmt.Errorf("%w: look %s", ErrInvalidValue, lid)
		}
	}
	for fid, o := range u.OverriddenFixtures {
		if _, ok := model.Fixture(fid); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownFixture, fid)
		}
		if o == nil {
			continue
		}
		for _, l := range o.Looks {
			if _, ok := model.Look(l.ID); !ok {
				return fmt.Errorf("%w: %q in override of %q", ErrUnknownLook, l.ID, fid)
			}
		}
	}
	return nil
}

func merge(st *RuntimeState, u Update) {
	if u.Blackout != nil {
		st.Blackout = *u.Blackout
	}
	for lid, v := range u.Looks {
		st.Looks[lid] = clamp(v, 0, 1)
	}
	for fid, vals := range u.Fixtures {
		dst := st.Fixtures[fid]
		if dst == nil {
			dst = make(ChannelValues, len(vals))
			st.Fixtures[fid] = dst
		}
		for ch, v := range vals {
			dst[ch] = clamp(v, 0, 100)
		}
	}
	for fid, o := range u.OverriddenFixtures {
		if o == nil || !o.Active {
			delete(st.OverriddenFixtures, fid)
			continue
		}
		st.OverriddenFixtures[fid] = Override{
			Active: true,
			Looks:  append([]OverrideLook(nil), o.Looks...),
		}
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
