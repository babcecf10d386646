package ws

import (
	"sort"
	"strings"
	"sync"

	"drawboardgo/internal/crdt"
)

// Display names treated as anonymous and hidden from the room directory.
var placeholderNames = map[string]struct{}{
	"":      {},
	"user":  {},
	"guest": {},
}

// Hub is the process-wide room registry: one Room per name, created on
// first reference, never evicted.
type Hub struct {
	rooms sync.Map // name -> *Room
}

func NewHub() *Hub { return &Hub{} }

// Room returns the room for name, creating it on first reference. Safe for
// concurrent connection setups: all callers observe the same instance.
func (h *Hub) Room(name string) *Room {
	if v, ok := h.rooms.Load(name); ok {
		return v.(*Room)
	}
	v, _ := h.rooms.LoadOrStore(name, newRoom(name))
	return v.(*Room)
}

// Peek returns the room for name without creating it.
func (h *Hub) Peek(name string) (*Room, bool) {
	v, ok := h.rooms.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*Room), true
}

// Peer is one named participant in a room directory listing.
type Peer struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// RoomInfo is one room's directory entry.
type RoomInfo struct {
	Name  string `json:"name"`
	Peers []Peer `json:"peers"`
}

// ListRooms projects every room's presence set into directory entries,
// hiding placeholder display names. Computed from live state on each call.
func (h *Hub) ListRooms() []RoomInfo {
	out := []RoomInfo{}
	h.rooms.Range(func(key, value any) bool {
		rm := value.(*Room)
		info := RoomInfo{Name: key.(string), Peers: []Peer{}}
		for client, st := range rm.Presence().Entries() {
			name := strings.TrimSpace(st.Name)
			if _, hidden := placeholderNames[strings.ToLower(name)]; hidden {
				continue
			}
			info.Peers = append(info.Peers, Peer{ID: client, Name: name, Color: st.Color})
		}
		sort.Slice(info.Peers, func(i, j int) bool { return info.Peers[i].ID < info.Peers[j].ID })
		out = append(out, info)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Snapshot returns each live room's merged stroke content, keyed by room
// name. Consumed by the periodic snapshot mirror.
func (h *Hub) Snapshot() map[string][]crdt.Stroke {
	out := map[string][]crdt.Stroke{}
	h.rooms.Range(func(key, value any) bool {
		out[key.(string)] = value.(*Room).Doc().Strokes()
		return true
	})
	return out
}
