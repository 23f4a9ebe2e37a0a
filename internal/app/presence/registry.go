/*
Package presence contains the real-time presence and relay engine.

This file defines the Registry, the single shared in-memory view of who is online.
It maps each logical user to the set of live connection IDs authenticated as that
user, together with the user's ephemeral session attributes. A secondary
connection-to-user index keeps disconnect handling O(1) and guarantees that a
connection belongs to at most one user entry at a time.
*/
package presence

import "sync"

// Defaults applied at registration time when the client supplies no display
// attributes or coordinates and no durable state exists for the user.
const (
	DefaultFirstName = "Anon"
	DefaultLastName  = ""
	DefaultX         = 100
	DefaultY         = 100
)

// UserPresence is the externally visible slice of a user entry: display
// attributes plus ephemeral position and table assignment.
type UserPresence struct {
	UserID    string  `json:"userId"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	RoomID    *string `json:"roomId"`
}

// entry is the per-user record. Invariant: conns is non-empty while the entry
// exists; the entry is removed, never left empty.
type entry struct {
	presence UserPresence
	conns    map[string]struct{}
}

// Registry is the concurrency-safe map of online users. All mutation goes
// through its methods; the underlying containers are never exposed.
type Registry struct {
	mu sync.RWMutex

	// users maps userID to its entry.
	users map[string]*entry

	// byConn maps connectionID to the owning userID.
	byConn map[string]string
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		users:  make(map[string]*entry),
		byConn: make(map[string]string),
	}
}

// Register binds connID to userID, creating the user entry from defaults when
// absent. Re-registering an existing (userID, connID) pair is a no-op with set
// semantics. A connection already bound to a different user is left untouched
// and ok is false. The returned presence reflects the entry after the call;
// display fields of an existing entry are never overwritten.
func (r *Registry) Register(userID, connID string, defaults UserPresence) (presence UserPresence, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, bound := r.byConn[connID]; bound && owner != userID {
		return UserPresence{}, false
	}

	e, exists := r.users[userID]
	if !exists {
		defaults.UserID = userID
		e = &entry{
			presence: defaults,
			conns:    make(map[string]struct{}),
		}
		r.users[userID] = e
	}

	e.conns[connID] = struct{}{}
	r.byConn[connID] = userID

	return e.presence, true
}

// Unregister removes connID from whichever entry contains it. When that drains
// the entry, the entry is deleted and the freed userID is returned with true so
// the caller can broadcast the departure. Unknown connections and entries with
// remaining live connections return ("", false).
func (r *Registry) Unregister(connID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, bound := r.byConn[connID]
	if !bound {
		return "", false
	}

	delete(r.byConn, connID)

	e, exists := r.users[userID]
	if !exists {
		return "", false
	}

	delete(e.conns, connID)
	if len(e.conns) > 0 {
		return "", false
	}

	delete(r.users, userID)
	return userID, true
}

// UpdatePosition updates the user's coordinates in place. It is a no-op
// returning false when the user has no entry, e.g. when a movement event loses
// a race with the final disconnect.
func (r *Registry) UpdatePosition(userID string, x, y float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.users[userID]
	if !exists {
		return false
	}

	e.presence.X = x
	e.presence.Y = y
	return true
}

// UpdateRoom updates the user's table assignment in place, with the same
// no-entry contract as UpdatePosition. A nil roomID means "no table".
func (r *Registry) UpdateRoom(userID string, roomID *string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, exists := r.users[userID]
	if !exists {
		return false
	}

	e.presence.RoomID = roomID
	return true
}

// Snapshot returns a consistent point-in-time copy of all user entries, used to
// build the roster sent to a newly registered connection.
func (r *Registry) Snapshot() []UserPresence {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]UserPresence, 0, len(r.users))
	for _, e := range r.users {
		out = append(out, e.presence)
	}
	return out
}

// ConnectionsFor returns the IDs of the user's live connections; empty when the
// user is offline.
func (r *Registry) ConnectionsFor(userID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.users[userID]
	if !exists {
		return nil
	}

	out := make([]string, 0, len(e.conns))
	for id := range e.conns {
		out = append(out, id)
	}
	return out
}

// IsOnline reports whether the user currently has at least one live connection.
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.users[userID]
	return exists
}

// ConnectionCount returns the number of live connections for the user.
func (r *Registry) ConnectionCount(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, exists := r.users[userID]
	if !exists {
		return 0
	}
	return len(e.conns)
}

// OnlineCount returns the number of distinct users currently online.
func (r *Registry) OnlineCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.users)
}
