package validate

import "sync"

// Registry holds the database's listener subscriptions and dispatches
// events to every matching Handler. Add/remove are guarded by a single
// mutex; Dispatch takes a snapshot of the slice under read lock so a
// handler that itself registers or unregisters a listener never
// deadlocks and never observes a torn list.
type Registry struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[uint64]registration
}

type registration struct {
	filter  Filter
	handler Handler
}

// NewRegistry returns an empty listener registry.
func NewRegistry() *Registry {
	return &Registry{listeners: make(map[uint64]registration)}
}

// Register subscribes handler to events matching filter and returns an
// ID for later Unregister.
func (r *Registry) Register(filter Filter, handler Handler) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	id := r.nextID
	r.listeners[id] = registration{filter: filter, handler: handler}
	return id
}

// Unregister removes a previously-registered listener. It is a no-op if
// id is unknown (already removed, or never valid).
func (r *Registry) Unregister(id uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.listeners, id)
}

// Dispatch synchronously invokes every listener whose filter matches ev,
// for an object of the given type's storage ID.
func (r *Registry) Dispatch(typeStorageID uint32, ev Event) {
	r.mu.RLock()
	snapshot := make([]registration, 0, len(r.listeners))
	for _, reg := range r.listeners {
		snapshot = append(snapshot, reg)
	}
	r.mu.RUnlock()

	for _, reg := range snapshot {
		if reg.filter.matches(typeStorageID, ev) {
			reg.handler(ev)
		}
	}
}
