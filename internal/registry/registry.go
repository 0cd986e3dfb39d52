package registry

import (
	"sort"
	"sync"
)

// ChatID identifies a recipient (Telegram chat id).
type ChatID = int64

// Registry is the live set of subscribed chats. It is in-memory only and
// safe for concurrent use by the command surface and the scheduler.
type Registry struct {
	mu  sync.Mutex
	ids map[ChatID]struct{}
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{ids: make(map[ChatID]struct{})}
}

// Add inserts id and reports whether it was newly added.
func (r *Registry) Add(id ChatID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; ok {
		return false
	}
	r.ids[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (r *Registry) Remove(id ChatID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; !ok {
		return false
	}
	delete(r.ids, id)
	return true
}

func (r *Registry) Contains(id ChatID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ids[id]
	return ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// Snapshot returns a point-in-time copy of the ids in ascending order.
func (r *Registry) Snapshot() []ChatID {
	r.mu.Lock()
	out := make([]ChatID, 0, len(r.ids))
	for id := range r.ids {
		out = append(out, id)
	}
	r.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
