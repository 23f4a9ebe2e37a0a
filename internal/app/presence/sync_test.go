package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurableSync_SeedState(t *testing.T) {
	store := newFakeStore()
	garden := "garden"
	store.states["alice"] = HangoutState{X: 1, Y: 2, RoomID: &garden}

	s := NewDurableSync(store)

	state, ok := s.SeedState("alice")
	require.True(t, ok)
	assert.Equal(t, float64(1), state.X)
	assert.Equal(t, float64(2), state.Y)
	require.NotNil(t, state.RoomID)
	assert.Equal(t, "garden", *state.RoomID)

	_, ok = s.SeedState("stranger")
	assert.False(t, ok)
}

func TestDurableSync_AsyncWrites(t *testing.T) {
	store := newFakeStore()
	s := NewDurableSync(store)

	s.UpsertBaseline(UserPresence{UserID: "alice", X: 10, Y: 20})

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		_, ok := store.states["alice"]
		return ok
	}, time.Second, 5*time.Millisecond)

	s.SavePosition("alice", 30, 40)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.states["alice"].X == 30 && store.states["alice"].Y == 40
	}, time.Second, 5*time.Millisecond)

	garden := "garden"
	s.SaveRoom("alice", &garden)

	require.Eventually(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		roomID := store.states["alice"].RoomID
		return roomID != nil && *roomID == "garden"
	}, time.Second, 5*time.Millisecond)
}

func TestDurableSync_MarkMessagesReadIsSynchronous(t *testing.T) {
	store := newFakeStore()
	s := NewDurableSync(store)

	s.MarkMessagesRead("chat-1", "bob")

	// No Eventually needed: the write completes before the call returns.
	store.mu.Lock()
	defer store.mu.Unlock()
	assert.Equal(t, [][2]string{{"chat-1", "bob"}}, store.markReadCalls)
}

func TestDurableSync_StoreFailuresAreSwallowed(t *testing.T) {
	store := newFakeStore()
	store.failAll = true
	s := NewDurableSync(store)

	// None of these may panic or propagate the failure.
	s.UpsertBaseline(UserPresence{UserID: "alice"})
	s.SavePosition("alice", 1, 2)
	s.SaveRoom("alice", nil)
	s.MarkMessagesRead("chat-1", "alice")

	_, ok := s.SeedState("alice")
	assert.False(t, ok)

	_, err := s.ChatParticipants("chat-1")
	assert.Error(t, err)
}
