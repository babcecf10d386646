// Package awareness tracks ephemeral per-connection presence (display name,
// color, live cursor) for a room. State is last-write-wins per client id
// using a per-client clock; a null state at a higher clock is a removal.
package awareness

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"
)

// Cursor is the live pointer position, absent when the pointer left.
type Cursor struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// State is one client's presence payload.
type State struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Cursor *Cursor `json:"cursor,omitempty"`
}

// entry is the wire form of one client's presence: a nil State means the
// client left at that clock.
type entry struct {
	Client uint64 `json:"client"`
	Clock  uint64 `json:"clock"`
	State  *State `json:"state"`
}

// Change lists the client ids affected by one applied delta.
type Change struct {
	Added   []uint64
	Updated []uint64
	Removed []uint64
}

// Empty reports whether the delta changed nothing.
func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Updated) == 0 && len(c.Removed) == 0
}

// IDs returns every affected client id (added ∪ updated ∪ removed).
func (c Change) IDs() []uint64 {
	ids := make([]uint64, 0, len(c.Added)+len(c.Updated)+len(c.Removed))
	ids = append(ids, c.Added...)
	ids = append(ids, c.Updated...)
	ids = append(ids, c.Removed...)
	return ids
}

// Set is one room's presence set. Origin handles are opaque to the set; they
// only tie client ids to the connection that last spoke for them so a
// disconnect can clear its entries.
type Set struct {
	mu      sync.RWMutex
	states  map[uint64]*State
	clocks  map[uint64]uint64 // kept for removed clients to reject stale deltas
	origins map[uint64]any
}

func NewSet() *Set {
	return &Set{
		states:  make(map[uint64]*State),
		clocks:  make(map[uint64]uint64),
		origins: make(map[uint64]any),
	}
}

// ApplyUpdate merges an encoded presence delta, recording origin as the
// connection that produced it, and reports which client ids changed.
func (s *Set) ApplyUpdate(payload []byte, origin any) (Change, error) {
	var entries []entry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return Change{}, fmt.Errorf("decode awareness update: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var ch Change
	for _, e := range entries {
		known, tracked := s.clocks[e.Client]
		if tracked && e.Clock <= known {
			// Stale, except a same-clock removal which must win so a
			// leave observed concurrently with an update sticks.
			if !(e.Clock == known && e.State == nil && s.states[e.Client] != nil) {
				continue
			}
		}
		s.clocks[e.Client] = e.Clock
		_, present := s.states[e.Client]
		switch {
		case e.State == nil && present:
			delete(s.states, e.Client)
			delete(s.origins, e.Client)
			ch.Removed = append(ch.Removed, e.Client)
		case e.State == nil:
			// Removal for a client never seen: remember the clock only.
		case present:
			s.states[e.Client] = e.State
			s.origins[e.Client] = origin
			ch.Updated = append(ch.Updated, e.Client)
		default:
			s.states[e.Client] = e.State
			s.origins[e.Client] = origin
			ch.Added = append(ch.Added, e.Client)
		}
	}
	return ch, nil
}

// RemoveByOrigin drops every entry last spoken for by origin, bumping each
// clock so the removal supersedes the final update. Used on disconnect.
func (s *Set) RemoveByOrigin(origin any) Change {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ch Change
	for client, o := range s.origins {
		if o != origin {
			continue
		}
		delete(s.states, client)
		delete(s.origins, client)
		s.clocks[client]++
		ch.Removed = append(ch.Removed, client)
	}
	return ch
}

// EncodeAll snapshots the full presence set as one delta payload, including
// the empty set ("[]"). Sent once to every new joiner.
func (s *Set) EncodeAll() []byte {
	s.mu.RLock()
	ids := make([]uint64, 0, len(s.states))
	for client := range s.states {
		ids = append(ids, client)
	}
	s.mu.RUnlock()
	return s.EncodeIDs(ids)
}

// EncodeIDs encodes the current state of the given client ids as a delta
// payload. Ids no longer present encode as removals.
func (s *Set) EncodeIDs(ids []uint64) []byte {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	entries := make([]entry, 0, len(ids))
	for _, client := range ids {
		entries = append(entries, entry{
			Client: client,
			Clock:  s.clocks[client],
			State:  s.states[client],
		})
	}
	raw, _ := json.Marshal(entries)
	return raw
}

// Entries returns a plain copy of the live presence states by client id.
func (s *Set) Entries() map[uint64]State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[uint64]State, len(s.states))
	for client, st := range s.states {
		out[client] = *st
	}
	return out
}
