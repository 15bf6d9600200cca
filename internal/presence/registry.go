package presence

import (
	"sync"

	"github.com/google/uuid"
)

// Handle identifies one live realtime connection.
type Handle string

// Registry maps users to the connections they announced on. It is process
// local and rebuilt from scratch on restart.
type Registry struct {
	mu     sync.Mutex
	byUser map[uuid.UUID][]Handle
	owner  map[Handle]uuid.UUID
}

func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[uuid.UUID][]Handle),
		owner:  make(map[Handle]uuid.UUID),
	}
}

// SetOnline records handle as a live connection of userID. It reports whether
// the user transitioned from offline to online. Re-announcing a handle under
// another user moves it.
func (r *Registry) SetOnline(userID uuid.UUID, handle Handle) bool {
	if userID == uuid.Nil || handle == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.owner[handle]; ok {
		if prev == userID {
			r.byUser[userID] = append(removeHandle(r.byUser[userID], handle), handle)
			return false
		}
		r.detachLocked(prev, handle)
	}
	wasOnline := len(r.byUser[userID]) > 0
	r.byUser[userID] = append(r.byUser[userID], handle)
	r.owner[handle] = userID
	return !wasOnline
}

// SetOffline drops handle wherever it is registered. It is safe for handles
// that never announced. wentOffline is true when the user has no live handle
// left.
func (r *Registry) SetOffline(handle Handle) (userID uuid.UUID, wentOffline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.owner[handle]
	if !ok {
		return uuid.Nil, false
	}
	return userID, r.detachLocked(userID, handle)
}

// IsOnline reports whether userID has at least one live handle.
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser[userID]) > 0
}

// HandleFor returns the most recently announced live handle of userID.
func (r *Registry) HandleFor(userID uuid.UUID) (Handle, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	handles := r.byUser[userID]
	if len(handles) == 0 {
		return "", false
	}
	return handles[len(handles)-1], true
}

// Online returns a snapshot of the users that are currently online.
func (r *Registry) Online() []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]uuid.UUID, 0, len(r.byUser))
	for userID := range r.byUser {
		out = append(out, userID)
	}
	return out
}

// Count returns the number of online users.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byUser)
}

func (r *Registry) detachLocked(userID uuid.UUID, handle Handle) bool {
	delete(r.owner, handle)
	remaining := removeHandle(r.byUser[userID], handle)
	if len(remaining) == 0 {
		delete(r.byUser, userID)
		return true
	}
	r.byUser[userID] = remaining
	return false
}

func removeHandle(handles []Handle, handle Handle) []Handle {
	out := handles[:0]
	for _, h := range handles {
		if h != handle {
			out = append(out, h)
		}
	}
	return out
}
