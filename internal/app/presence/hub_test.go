package presence

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockConn records every frame queued for it.
type mockConn struct {
	id      string
	mu      sync.Mutex
	frames  [][]byte
	closed  bool
	sendErr error
}

func (m *mockConn) ID() string { return m.id }

func (m *mockConn) Send(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return m.sendErr
	}
	m.frames = append(m.frames, data)
	return nil
}

func (m *mockConn) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// events decodes every recorded frame into its envelope.
func (m *mockConn) events(t *testing.T) []Event {
	t.Helper()

	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, 0, len(m.frames))
	for _, frame := range m.frames {
		var evt Event
		require.NoError(t, json.Unmarshal(frame, &evt))
		out = append(out, evt)
	}
	return out
}

func (m *mockConn) eventsOfType(t *testing.T, want EventType) []Event {
	t.Helper()

	var out []Event
	for _, evt := range m.events(t) {
		if evt.Type == want {
			out = append(out, evt)
		}
	}
	return out
}

// fakeStore is an in-memory StateStore recording every durable write.
type fakeStore struct {
	mu            sync.Mutex
	states        map[string]HangoutState
	participants  map[string][]string
	markReadCalls [][2]string
	upsertCalls   int
	failAll       bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		states:       make(map[string]HangoutState),
		participants: make(map[string][]string),
	}
}

func (f *fakeStore) UpsertHangoutState(_ context.Context, userID string, x, y float64, roomID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store down")
	}
	f.states[userID] = HangoutState{X: x, Y: y, RoomID: roomID}
	f.upsertCalls++
	return nil
}

func (f *fakeStore) UpdateHangoutPosition(_ context.Context, userID string, x, y float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store down")
	}
	state := f.states[userID]
	state.X, state.Y = x, y
	f.states[userID] = state
	return nil
}

func (f *fakeStore) UpdateHangoutRoom(_ context.Context, userID string, roomID *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store down")
	}
	state := f.states[userID]
	state.RoomID = roomID
	f.states[userID] = state
	return nil
}

func (f *fakeStore) MarkChatMessagesRead(_ context.Context, chatID, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return errors.New("store down")
	}
	f.markReadCalls = append(f.markReadCalls, [2]string{chatID, userID})
	return nil
}

func (f *fakeStore) GetHangoutState(_ context.Context, userID string) (HangoutState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return HangoutState{}, errors.New("store down")
	}
	state, ok := f.states[userID]
	if !ok {
		return HangoutState{}, errors.New("no state")
	}
	return state, nil
}

func (f *fakeStore) GetChatParticipants(_ context.Context, chatID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll {
		return nil, errors.New("store down")
	}
	return f.participants[chatID], nil
}

func newTestHub(store *fakeStore) *Hub {
	return NewHub(NewDurableSync(store))
}

// attachAndRegister wires a mock connection into the hub and registers it as userID.
func attachAndRegister(h *Hub, connID, userID string) *mockConn {
	conn := &mockConn{id: connID}
	h.Attach(conn)
	h.HandleRegister(conn, RegisterPayload{UserID: userID})
	return conn
}

func TestHub_RegisterSendsRosterAndBroadcastsJoin(t *testing.T) {
	h := newTestHub(newFakeStore())

	alice := attachAndRegister(h, "c-alice", "alice")

	x, y := 5.0, 9.0
	bob := &mockConn{id: "c-bob"}
	h.Attach(bob)
	h.HandleRegister(bob, RegisterPayload{
		UserID:    "bob",
		FirstName: "Bob",
		X:         Coord{Value: x, Valid: true},
		Y:         Coord{Value: y, Valid: true},
	})

	// The roster goes only to the registering connection and excludes bob himself.
	rosters := bob.eventsOfType(t, EvtExistingUsers)
	require.Len(t, rosters, 1)

	var roster []UserPresence
	require.NoError(t, json.Unmarshal(rosters[0].Payload, &roster))
	require.Len(t, roster, 1)
	assert.Equal(t, "alice", roster[0].UserID)
	assert.Equal(t, DefaultFirstName, roster[0].FirstName)

	assert.Empty(t, alice.eventsOfType(t, EvtExistingUsers))

	// Everyone else sees the join with bob's display data and position.
	joins := alice.eventsOfType(t, EvtUserJoined)
	require.Len(t, joins, 1)

	var joined UserPresence
	require.NoError(t, json.Unmarshal(joins[0].Payload, &joined))
	assert.Equal(t, "bob", joined.UserID)
	assert.Equal(t, "Bob", joined.FirstName)
	assert.Equal(t, x, joined.X)
	assert.Equal(t, y, joined.Y)

	assert.Empty(t, bob.eventsOfType(t, EvtUserJoined))
}

func TestHub_RegisterSeedsFromDurableState(t *testing.T) {
	store := newFakeStore()
	garden := "garden"
	store.states["alice"] = HangoutState{X: 33, Y: 44, RoomID: &garden}

	h := newTestHub(store)
	observer := attachAndRegister(h, "c-obs", "observer")

	alice := &mockConn{id: "c-alice"}
	h.Attach(alice)
	h.HandleRegister(alice, RegisterPayload{UserID: "alice"})

	joins := observer.eventsOfType(t, EvtUserJoined)
	require.Len(t, joins, 1)

	var joined UserPresence
	require.NoError(t, json.Unmarshal(joins[0].Payload, &joined))
	assert.Equal(t, float64(33), joined.X)
	assert.Equal(t, float64(44), joined.Y)
	require.NotNil(t, joined.RoomID)
	assert.Equal(t, "garden", *joined.RoomID)
}

func TestHub_MultiConnectionUserLeftOnce(t *testing.T) {
	h := newTestHub(newFakeStore())

	alice := attachAndRegister(h, "c-alice", "alice")
	bob1 := attachAndRegister(h, "c-bob-1", "bob")
	bob2 := attachAndRegister(h, "c-bob-2", "bob")

	require.Equal(t, 2, h.LiveConnectionCount("bob"))

	// Dropping one of two devices keeps bob online and emits nothing.
	h.Detach(bob1)
	assert.True(t, h.IsUserOnline("bob"))
	assert.Empty(t, alice.eventsOfType(t, EvtUserLeft))

	// Dropping the last device emits exactly one userLeft.
	h.Detach(bob2)
	assert.False(t, h.IsUserOnline("bob"))

	lefts := alice.eventsOfType(t, EvtUserLeft)
	require.Len(t, lefts, 1)

	var left UserLeftEvent
	require.NoError(t, json.Unmarshal(lefts[0].Payload, &left))
	assert.Equal(t, "bob", left.UserID)
}

func TestHub_DetachUnregisteredConnectionIsSilent(t *testing.T) {
	h := newTestHub(newFakeStore())

	alice := attachAndRegister(h, "c-alice", "alice")

	anonymous := &mockConn{id: "c-anon"}
	h.Attach(anonymous)
	h.Detach(anonymous)

	assert.Empty(t, alice.eventsOfType(t, EvtUserLeft))
}

func TestHub_MoveBroadcast(t *testing.T) {
	h := newTestHub(newFakeStore())

	alice := attachAndRegister(h, "c-alice", "alice")
	bob := attachAndRegister(h, "c-bob", "bob")

	h.HandleMove(bob, MovePayload{
		UserID: "bob",
		X:      Coord{Value: 70, Valid: true},
		Y:      Coord{Value: 80, Valid: true},
	})

	moves := alice.eventsOfType(t, EvtUserMoved)
	require.Len(t, moves, 1)

	var moved MovedEvent
	require.NoError(t, json.Unmarshal(moves[0].Payload, &moved))
	assert.Equal(t, MovedEvent{UserID: "bob", X: 70, Y: 80}, moved)

	assert.Empty(t, bob.eventsOfType(t, EvtUserMoved))
}

func TestHub_MoveForOfflineUserIsDropped(t *testing.T) {
	h := newTestHub(newFakeStore())

	alice := attachAndRegister(h, "c-alice", "alice")

	// ghost never registered; its movement must not reach anyone.
	ghost := &mockConn{id: "c-ghost"}
	h.Attach(ghost)
	h.HandleMove(ghost, MovePayload{
		UserID: "ghost",
		X:      Coord{Value: 1, Valid: true},
		Y:      Coord{Value: 2, Valid: true},
	})

	assert.Empty(t, alice.eventsOfType(t, EvtUserMoved))
}

func TestHub_JoinTableBroadcast(t *testing.T) {
	h := newTestHub(newFakeStore())

	alice := attachAndRegister(h, "c-alice", "alice")
	bob := attachAndRegister(h, "c-bob", "bob")

	table := "table-7"
	h.HandleJoinTable(bob, JoinTablePayload{UserID: "bob", TableID: &table})

	joins := alice.eventsOfType(t, EvtTableJoined)
	require.Len(t, joins, 1)

	var joined TableJoinedEvent
	require.NoError(t, json.Unmarshal(joins[0].Payload, &joined))
	assert.Equal(t, "bob", joined.UserID)
	require.NotNil(t, joined.TableID)
	assert.Equal(t, "table-7", *joined.TableID)
}

func TestHub_TableCreatedPassthrough(t *testing.T) {
	h := newTestHub(newFakeStore())

	alice := attachAndRegister(h, "c-alice", "alice")
	bob := attachAndRegister(h, "c-bob", "bob")

	raw := json.RawMessage(`{"tableId":"t-1","name":"Class of 2010"}`)
	h.HandleTableCreated(bob, raw)

	created := alice.eventsOfType(t, EvtTableCreated)
	require.Len(t, created, 1)
	assert.JSONEq(t, string(raw), string(created[0].Payload))

	assert.Empty(t, bob.eventsOfType(t, EvtTableCreated))
}

func TestHub_VideoRelayReachesEveryTargetConnection(t *testing.T) {
	h := newTestHub(newFakeStore())

	alice := attachAndRegister(h, "c-alice", "alice")
	bob1 := attachAndRegister(h, "c-bob-1", "bob")
	bob2 := attachAndRegister(h, "c-bob-2", "bob")

	raw := json.RawMessage(`{"from":"alice","to":"bob","sdp":"v=0..."}`)
	h.HandleSignal(alice, EvtVideoOffer, raw)

	for _, conn := range []*mockConn{bob1, bob2} {
		offers := conn.eventsOfType(t, EvtVideoOffer)
		require.Len(t, offers, 1, "connection %s", conn.ID())
		assert.JSONEq(t, string(raw), string(offers[0].Payload))
	}

	assert.Empty(t, alice.eventsOfType(t, EvtVideoOffer))
}

func TestHub_VideoRelayToOfflineTargetIsSilent(t *testing.T) {
	h := newTestHub(newFakeStore())

	alice := attachAndRegister(h, "c-alice", "alice")

	raw := json.RawMessage(`{"from":"alice","to":"nobody","sdp":"v=0..."}`)
	h.HandleSignal(alice, EvtVideoOffer, raw)

	assert.Empty(t, alice.eventsOfType(t, EvtVideoOffer))
}

func TestHub_ReadReceiptScenario(t *testing.T) {
	store := newFakeStore()
	store.participants["chat-1"] = []string{"alice", "bob"}

	h := newTestHub(store)

	aliceConn := attachAndRegister(h, "c-alice", "alice")
	bobConn := attachAndRegister(h, "c-bob", "bob")

	h.HandleMarkRead(bobConn, MarkReadPayload{ChatID: "chat-1", UserID: "bob"})

	// The durable update ran before the push.
	store.mu.Lock()
	require.Equal(t, [][2]string{{"chat-1", "bob"}}, store.markReadCalls)
	store.mu.Unlock()

	// The message sender's connections see the receipt; the reader's do not.
	reads := aliceConn.eventsOfType(t, EvtMessagesRead)
	require.Len(t, reads, 1)

	var read MessagesReadEvent
	require.NoError(t, json.Unmarshal(reads[0].Payload, &read))
	assert.Equal(t, MessagesReadEvent{ChatID: "chat-1", UserID: "bob"}, read)

	assert.Empty(t, bobConn.eventsOfType(t, EvtMessagesRead))
}

func TestHub_RelayFollowNotification(t *testing.T) {
	h := newTestHub(newFakeStore())

	bob := attachAndRegister(h, "c-bob", "bob")
	alice := attachAndRegister(h, "c-alice", "alice")

	h.RelayFollowNotification("bob", map[string]string{"followerId": "alice"})

	follows := bob.eventsOfType(t, EvtUserFollowed)
	require.Len(t, follows, 1)
	assert.Empty(t, alice.eventsOfType(t, EvtUserFollowed))

	// Offline target: nothing delivered, nothing fails.
	h.RelayFollowNotification("nobody", map[string]string{"followerId": "alice"})
}

func TestHub_RelayMessageCreated(t *testing.T) {
	h := newTestHub(newFakeStore())

	alice := attachAndRegister(h, "c-alice", "alice")
	bob1 := attachAndRegister(h, "c-bob-1", "bob")
	bob2 := attachAndRegister(h, "c-bob-2", "bob")

	message := map[string]string{"id": "m-1", "content": "hello"}
	h.RelayMessageCreated([]string{"alice", "bob", "carol"}, "chat-1", message)

	// Every live connection of every participant receives the push, the
	// offline participant is skipped silently.
	for _, conn := range []*mockConn{alice, bob1, bob2} {
		pushes := conn.eventsOfType(t, EvtMessageCreated)
		require.Len(t, pushes, 1, "connection %s", conn.ID())

		var created MessageCreatedEvent
		require.NoError(t, json.Unmarshal(pushes[0].Payload, &created))
		assert.Equal(t, "chat-1", created.ChatID)
	}
}

func TestHub_OnlineQueries(t *testing.T) {
	h := newTestHub(newFakeStore())

	assert.False(t, h.IsUserOnline("alice"))
	assert.Equal(t, 0, h.LiveConnectionCount("alice"))

	attachAndRegister(h, "c-1", "alice")
	attachAndRegister(h, "c-2", "alice")

	assert.True(t, h.IsUserOnline("alice"))
	assert.Equal(t, 2, h.LiveConnectionCount("alice"))
}
