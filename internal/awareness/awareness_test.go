package awareness

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodeEntries(t *testing.T, entries ...entry) []byte {
	t.Helper()
	raw, err := json.Marshal(entries)
	require.NoError(t, err)
	return raw
}

func decodeEntries(t *testing.T, payload []byte) []entry {
	t.Helper()
	var entries []entry
	require.NoError(t, json.Unmarshal(payload, &entries))
	return entries
}

func TestApplyUpdateAddUpdateRemove(t *testing.T) {
	s := NewSet()
	origin := "conn-1"

	ch, err := s.ApplyUpdate(encodeEntries(t,
		entry{Client: 1, Clock: 1, State: &State{Name: "Alice", Color: "#ff0000"}},
	), origin)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ch.Added)
	assert.Empty(t, ch.Updated)
	assert.Empty(t, ch.Removed)

	ch, err = s.ApplyUpdate(encodeEntries(t,
		entry{Client: 1, Clock: 2, State: &State{Name: "Alice", Color: "#ff0000", Cursor: &Cursor{X: 10, Y: 20}}},
	), origin)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ch.Updated)

	ch, err = s.ApplyUpdate(encodeEntries(t,
		entry{Client: 1, Clock: 3, State: nil},
	), origin)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1}, ch.Removed)
	assert.Empty(t, s.Entries())
}

func TestApplyUpdateRejectsStaleClock(t *testing.T) {
	s := NewSet()

	_, err := s.ApplyUpdate(encodeEntries(t,
		entry{Client: 5, Clock: 4, State: &State{Name: "Bob", Color: "#00ff00"}},
	), "c")
	require.NoError(t, err)

	ch, err := s.ApplyUpdate(encodeEntries(t,
		entry{Client: 5, Clock: 3, State: &State{Name: "Mallory", Color: "#000000"}},
	), "c")
	require.NoError(t, err)
	assert.True(t, ch.Empty())
	assert.Equal(t, "Bob", s.Entries()[5].Name)
}

func TestSameClockRemovalWins(t *testing.T) {
	s := NewSet()

	_, err := s.ApplyUpdate(encodeEntries(t,
		entry{Client: 2, Clock: 7, State: &State{Name: "Eve", Color: "#112233"}},
	), "c")
	require.NoError(t, err)

	ch, err := s.ApplyUpdate(encodeEntries(t,
		entry{Client: 2, Clock: 7, State: nil},
	), "c")
	require.NoError(t, err)
	assert.Equal(t, []uint64{2}, ch.Removed)
}

func TestRemoveByOrigin(t *testing.T) {
	s := NewSet()

	_, err := s.ApplyUpdate(encodeEntries(t,
		entry{Client: 1, Clock: 1, State: &State{Name: "Alice", Color: "#ff0000"}},
	), "conn-a")
	require.NoError(t, err)
	_, err = s.ApplyUpdate(encodeEntries(t,
		entry{Client: 2, Clock: 1, State: &State{Name: "Bob", Color: "#00ff00"}},
	), "conn-b")
	require.NoError(t, err)

	ch := s.RemoveByOrigin("conn-a")
	assert.Equal(t, []uint64{1}, ch.Removed)

	entries := s.Entries()
	assert.NotContains(t, entries, uint64(1))
	assert.Contains(t, entries, uint64(2))

	// The bumped clock makes the removal stick against the last update.
	encoded := decodeEntries(t, s.EncodeIDs([]uint64{1}))
	require.Len(t, encoded, 1)
	assert.Nil(t, encoded[0].State)
	assert.Equal(t, uint64(2), encoded[0].Clock)

	assert.True(t, s.RemoveByOrigin("conn-a").Empty(), "second removal is a no-op")
}

func TestEncodeAllSnapshot(t *testing.T) {
	s := NewSet()
	assert.JSONEq(t, "[]", string(s.EncodeAll()), "empty set still encodes")

	_, err := s.ApplyUpdate(encodeEntries(t,
		entry{Client: 3, Clock: 1, State: &State{Name: "Cara", Color: "#abcdef"}},
		entry{Client: 4, Clock: 1, State: &State{Name: "Dan", Color: "#fedcba"}},
	), "c")
	require.NoError(t, err)

	entries := decodeEntries(t, s.EncodeAll())
	require.Len(t, entries, 2)
	assert.Equal(t, uint64(3), entries[0].Client)
	assert.Equal(t, "Cara", entries[0].State.Name)
	assert.Equal(t, uint64(4), entries[1].Client)
}

func TestApplyUpdateBadPayload(t *testing.T) {
	s := NewSet()
	_, err := s.ApplyUpdate([]byte("{"), "c")
	assert.Error(t, err)
}
