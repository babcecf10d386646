package ws

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyPresence(t *testing.T, rm *Room, payload string) {
	t.Helper()
	_, err := rm.Presence().ApplyUpdate([]byte(payload), "test-origin")
	require.NoError(t, err)
}

func TestRoomSingleInstancePerName(t *testing.T) {
	hub := NewHub()

	const goroutines = 100
	rooms := make([]*Room, goroutines)
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			rooms[i] = hub.Room("studio-123")
		}(i)
	}
	wg.Wait()

	for i := 1; i < goroutines; i++ {
		assert.Same(t, rooms[0], rooms[i], "every join must share one room instance")
	}

	other := hub.Room("studio-456")
	assert.NotSame(t, rooms[0], other)
}

func TestRoomNeverEvicted(t *testing.T) {
	hub := NewHub()
	rm := hub.Room("sticky")

	c := &clientConn{id: 1}
	rm.add(c)
	rm.remove(c)
	assert.Equal(t, 0, rm.size())

	again, ok := hub.Peek("sticky")
	require.True(t, ok)
	assert.Same(t, rm, again, "empty rooms persist for the process lifetime")
}

func TestListRoomsEmptyDirectory(t *testing.T) {
	hub := NewHub()

	rooms := hub.ListRooms()
	require.NotNil(t, rooms, "an empty directory must encode as [], not null")
	assert.Empty(t, rooms)
}

func TestListRoomsFiltersPlaceholders(t *testing.T) {
	hub := NewHub()
	rm := hub.Room("gallery")

	applyPresence(t, rm, `[
		{"client":1,"clock":1,"state":{"name":"Alice","color":"#ff0000"}},
		{"client":2,"clock":1,"state":{"name":"","color":"#111111"}},
		{"client":3,"clock":1,"state":{"name":"user","color":"#222222"}},
		{"client":4,"clock":1,"state":{"name":"User","color":"#333333"}},
		{"client":5,"clock":1,"state":{"name":"GUEST","color":"#444444"}},
		{"client":6,"clock":1,"state":{"name":"  Bob  ","color":"#00ff00"}},
		{"client":7,"clock":1,"state":{"name":"   ","color":"#555555"}}
	]`)

	rooms := hub.ListRooms()
	require.Len(t, rooms, 1)
	require.Len(t, rooms[0].Peers, 2)
	assert.Equal(t, Peer{ID: 1, Name: "Alice", Color: "#ff0000"}, rooms[0].Peers[0])
	assert.Equal(t, Peer{ID: 6, Name: "Bob", Color: "#00ff00"}, rooms[0].Peers[1])
}

func TestListRoomsReflectsLiveState(t *testing.T) {
	hub := NewHub()
	rm := hub.Room("live")

	applyPresence(t, rm, `[{"client":1,"clock":1,"state":{"name":"Alice","color":"#ff0000"}}]`)
	require.Len(t, hub.ListRooms()[0].Peers, 1)

	applyPresence(t, rm, `[{"client":1,"clock":2,"state":null}]`)
	assert.Empty(t, hub.ListRooms()[0].Peers, "no caching between polls")
}

func TestSnapshotCoversAllRooms(t *testing.T) {
	hub := NewHub()
	for i := 0; i < 3; i++ {
		name := fmt.Sprintf("room-%d", i)
		_, err := hub.Room(name).Doc().ApplyUpdate([]byte(fmt.Sprintf(
			`[{"client":1,"clock":1,"ops":[{"kind":"put","stroke":{"id":"s%d","color":"#000000","width":1}}]}]`, i)))
		require.NoError(t, err)
	}

	snap := hub.Snapshot()
	require.Len(t, snap, 3)
	assert.Equal(t, "s1", snap["room-1"][0].ID)
}
