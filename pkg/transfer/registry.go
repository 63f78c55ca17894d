package transfer

import (
	"sync"
)

////////////////////////////////////////////////////////////////////////////////
// TYPES

// Registry maps an original filename to the container created for it by
// an upload in this process. It is a cache: every operation re-derives
// its state from the ledger, so an empty registry changes nothing but the
// default container for a resume.
type Registry struct {
	mu         sync.RWMutex
	containers map[string]string
}

////////////////////////////////////////////////////////////////////////////////
// LIFECYCLE

func NewRegistry() *Registry {
	return &Registry{containers: make(map[string]string)}
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Set records the container for a filename, replacing any earlier entry
func (r *Registry) Set(filename, container string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers[filename] = container
}

// Get returns the container recorded for a filename
func (r *Registry) Get(filename string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	container, ok := r.containers[filename]
	return container, ok
}

// Len returns the number of entries
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.containers)
}
