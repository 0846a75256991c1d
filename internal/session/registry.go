package session

import "sync"

// Registry maps room IDs to their live stores. Rooms are created on first
// lookup and dropped when the last client leaves, except pinned rooms, which
// outlive their websocket clients.
type Registry struct {
	mu     sync.Mutex
	rooms  map[string]*Store
	pinned map[string]bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*Store),
		pinned: make(map[string]bool),
	}
}

// Room returns the store for roomID, creating it when absent.
func (r *Registry) Room(roomID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.roomLocked(roomID)
}

// Retain returns the store for roomID, creating it when absent, and pins it
// so Drop leaves it in place. For rooms whose store is shared with a
// long-lived owner, like the demo simulator.
func (r *Registry) Retain(roomID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pinned[roomID] = true
	return r.roomLocked(roomID)
}

func (r *Registry) roomLocked(roomID string) *Store {
	st, ok := r.rooms[roomID]
	if !ok {
		st = NewStore()
		r.rooms[roomID] = st
	}
	return st
}

// Pinned reports whether roomID was retained.
func (r *Registry) Pinned(roomID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pinned[roomID]
}

// Lookup returns the store for roomID without creating one.
func (r *Registry) Lookup(roomID string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.rooms[roomID]
	return st, ok
}

// Drop removes roomID from the registry. Pinned rooms are kept.
func (r *Registry) Drop(roomID string) {
	r.mu.Lock()
	if !r.pinned[roomID] {
		delete(r.rooms, roomID)
	}
	r.mu.Unlock()
}
