package ws

import (
	"sync"

	"drawboardgo/internal/awareness"
	"drawboardgo/internal/crdt"
)

// Room is one named collaboration session: a shared stroke document, a
// presence set, and the connections currently bound to it. Rooms live for
// the process lifetime; connection membership is the only thing that churns.
type Room struct {
	Name string

	doc      *crdt.Doc
	presence *awareness.Set

	mu    sync.RWMutex
	conns map[*clientConn]struct{}
}

func newRoom(name string) *Room {
	return &Room{
		Name:     name,
		doc:      crdt.NewDoc(),
		presence: awareness.NewSet(),
		conns:    map[*clientConn]struct{}{},
	}
}

func (r *Room) Doc() *crdt.Doc           { return r.doc }
func (r *Room) Presence() *awareness.Set { return r.presence }

func (r *Room) add(c *clientConn) {
	r.mu.Lock()
	r.conns[c] = struct{}{}
	r.mu.Unlock()
}

func (r *Room) remove(c *clientConn) {
	r.mu.Lock()
	delete(r.conns, c)
	r.mu.Unlock()
}

func (r *Room) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// broadcast sends a frame to every connection in the room except origin
// (nil origin = everyone). The connection set is snapshotted first so the
// I/O happens outside the lock; a failed writer is dropped from the room
// without affecting delivery to the rest.
func (r *Room) broadcast(frame []byte, origin *clientConn) {
	r.mu.RLock()
	conns := make([]*clientConn, 0, len(r.conns))
	for c := range r.conns {
		if c != origin {
			conns = append(conns, c)
		}
	}
	r.mu.RUnlock()

	var failed []*clientConn
	for _, c := range conns {
		if err := c.write(frame); err != nil {
			failed = append(failed, c)
		}
	}
	for _, c := range failed {
		r.remove(c)
		c.close()
	}
}
