// Package presence tracks which live connection, if any, currently represents
// a given user, so targeted pushes can be routed without broadcasting.
package presence

import "sync"

// Registry maps a user id to its single active connection id.
//
// Registration is last-wins: a second login displaces the first connection's
// routing entry while the displaced connection stays open for room broadcasts.
// Multi-connection fan-out per user is a known candidate improvement; the
// current contract is intentionally one routing entry per user.
//
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	byUser  map[int64]string
	byConn  map[string]int64
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[int64]string),
		byConn: make(map[string]int64),
	}
}

// Register binds userID to connID, unconditionally displacing any prior
// mapping for the user.
func (r *Registry) Register(userID int64, connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		delete(r.byConn, prev)
	}
	r.byUser[userID] = connID
	r.byConn[connID] = userID
}

// Lookup returns the live connection id for the user. ok is false when the
// user has no live connection and the caller must rely on the persisted
// notification and email only.
func (r *Registry) Lookup(userID int64) (connID string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	connID, ok = r.byUser[userID]
	return connID, ok
}

// Unregister removes the mapping held by connID, if any. A connection that
// never registered, or whose entry was displaced by a later registration,
// is a no-op: the displaced connection's disconnect must not evict the
// newer mapping.
func (r *Registry) Unregister(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connID]
	if !ok {
		return
	}
	delete(r.byConn, connID)
	if r.byUser[userID] == connID {
		delete(r.byUser, userID)
	}
}
