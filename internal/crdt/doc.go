// Package crdt implements the shared stroke document: a last-write-wins set
// of stroke records replicated through opaque update payloads. Updates apply
// idempotently in any order, so replicas converge regardless of how the
// relay interleaves them.
package crdt

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
)

// Point is a single cursor/stroke coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Stroke is one drawn line on the board.
type Stroke struct {
	ID     string  `json:"id"`
	Points []Point `json:"points"`
	Color  string  `json:"color"`
	Width  float64 `json:"width"`
}

// Op kinds carried inside an update.
const (
	OpPut    = "put"
	OpDelete = "del"
)

// Op inserts or deletes a single stroke.
type Op struct {
	Kind   string  `json:"kind"`
	Stroke *Stroke `json:"stroke,omitempty"`
	Target string  `json:"target,omitempty"`
}

// Update is one client-originated batch of ops. (Client, Clock) identifies
// it uniquely; a client's clocks are strictly increasing.
type Update struct {
	Client uint64 `json:"client"`
	Clock  uint64 `json:"clock"`
	Ops    []Op   `json:"ops"`
}

// StateVector records, per client, the highest clock a replica has seen.
type StateVector map[uint64]uint64

type strokeState struct {
	stroke  *Stroke
	deleted bool
	clock   uint64
	client  uint64
}

// wins reports whether an op stamped (clock, client) supersedes the state.
func (s *strokeState) wins(clock, client uint64) bool {
	if clock != s.clock {
		return clock > s.clock
	}
	return client > s.client
}

// Doc is one room's authoritative document replica.
type Doc struct {
	mu      sync.RWMutex
	strokes map[string]*strokeState
	log     map[uint64][]Update // per client, sorted by clock
	vector  StateVector
}

func NewDoc() *Doc {
	return &Doc{
		strokes: make(map[string]*strokeState),
		log:     make(map[uint64][]Update),
		vector:  make(StateVector),
	}
}

// ApplyUpdate merges an opaque update payload into the document. It returns
// how many updates were new; duplicates and reordered arrivals are no-ops.
func (d *Doc) ApplyUpdate(payload []byte) (applied int, err error) {
	var updates []Update
	if err := json.Unmarshal(payload, &updates); err != nil {
		return 0, fmt.Errorf("decode update: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	for _, u := range updates {
		if d.seen(u.Client, u.Clock) {
			continue
		}
		d.insertLog(u)
		for _, op := range u.Ops {
			d.applyOp(u, op)
		}
		if u.Clock > d.vector[u.Client] {
			d.vector[u.Client] = u.Clock
		}
		applied++
	}
	return applied, nil
}

func (d *Doc) seen(client, clock uint64) bool {
	for _, u := range d.log[client] {
		if u.Clock == clock {
			return true
		}
	}
	return false
}

func (d *Doc) insertLog(u Update) {
	entries := d.log[u.Client]
	i := sort.Search(len(entries), func(i int) bool { return entries[i].Clock >= u.Clock })
	entries = append(entries, Update{})
	copy(entries[i+1:], entries[i:])
	entries[i] = u
	d.log[u.Client] = entries
}

func (d *Doc) applyOp(u Update, op Op) {
	switch op.Kind {
	case OpPut:
		if op.Stroke == nil || op.Stroke.ID == "" {
			return
		}
		cur, ok := d.strokes[op.Stroke.ID]
		if ok && !cur.wins(u.Clock, u.Client) {
			return
		}
		d.strokes[op.Stroke.ID] = &strokeState{
			stroke: op.Stroke,
			clock:  u.Clock,
			client: u.Client,
		}
	case OpDelete:
		cur, ok := d.strokes[op.Target]
		if ok && !cur.wins(u.Clock, u.Client) {
			return
		}
		d.strokes[op.Target] = &strokeState{
			deleted: true,
			clock:   u.Clock,
			client:  u.Client,
		}
	}
}

// EncodeStateVector snapshots the document's state vector as a payload a
// remote replica can diff against.
func (d *Doc) EncodeStateVector() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]uint64, len(d.vector))
	for client, clock := range d.vector {
		out[strconv.FormatUint(client, 10)] = clock
	}
	raw, _ := json.Marshal(out)
	return raw
}

// DecodeStateVector parses a remote state vector payload.
func DecodeStateVector(payload []byte) (StateVector, error) {
	raw := map[string]uint64{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &raw); err != nil {
			return nil, fmt.Errorf("decode state vector: %w", err)
		}
	}
	sv := make(StateVector, len(raw))
	for k, clock := range raw {
		client, err := strconv.ParseUint(k, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode state vector key %q: %w", k, err)
		}
		sv[client] = clock
	}
	return sv, nil
}

// DiffUpdate encodes every update the remote replica (described by sv) has
// not seen yet, as a single payload. Always returns a valid payload, even
// when the remote is current ("[]").
func (d *Doc) DiffUpdate(sv StateVector) []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var missing []Update
	for client, entries := range d.log {
		have := sv[client]
		for _, u := range entries {
			if u.Clock > have {
				missing = append(missing, u)
			}
		}
	}
	sort.Slice(missing, func(i, j int) bool {
		if missing[i].Client != missing[j].Client {
			return missing[i].Client < missing[j].Client
		}
		return missing[i].Clock < missing[j].Clock
	})
	if missing == nil {
		missing = []Update{}
	}
	raw, _ := json.Marshal(missing)
	return raw
}

// Strokes returns the merged stroke sequence as plain values, ordered by
// insertion stamp. Used for persistence and export hand-off.
func (d *Doc) Strokes() []Stroke {
	d.mu.RLock()
	defer d.mu.RUnlock()

	type stamped struct {
		stroke *Stroke
		clock  uint64
		client uint64
	}
	live := make([]stamped, 0, len(d.strokes))
	for _, st := range d.strokes {
		if st.deleted {
			continue
		}
		live = append(live, stamped{st.stroke, st.clock, st.client})
	}
	sort.Slice(live, func(i, j int) bool {
		if live[i].clock != live[j].clock {
			return live[i].clock < live[j].clock
		}
		if live[i].client != live[j].client {
			return live[i].client < live[j].client
		}
		return live[i].stroke.ID < live[j].stroke.ID
	})

	out := make([]Stroke, len(live))
	for i, s := range live {
		out[i] = *s.stroke
	}
	return out
}
