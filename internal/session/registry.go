package session

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var ErrDuplicateSession = errors.New("duplicate session")

// Registry is the set of sessions that are currently connected. List
// returns them in the order they were added.
type Registry struct {
	mu       sync.RWMutex
	order    []string
	sessions map[string]*ClientSession
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*ClientSession),
	}
}

func (r *Registry) Add(s ClientSession) error {
	if s.State == Closed {
		return fmt.Errorf("adding session %s: session is closed", s.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.sessions[s.ID]; ok {
		if existing.State != Closed {
			return fmt.Errorf("%w: %s", ErrDuplicateSession, s.ID)
		}
		r.remove(s.ID)
	}

	copy := s
	r.sessions[s.ID] = &copy
	r.order = append(r.order, s.ID)
	return nil
}

// Remove drops the session. Removing an unknown id is a no-op.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.remove(id)
}

func (r *Registry) remove(id string) bool {
	if _, ok := r.sessions[id]; !ok {
		return false
	}
	delete(r.sessions, id)
	r.order = slices.DeleteFunc(r.order, func(o string) bool { return o == id })
	return true
}

// SetState moves a session to state. Moving to Closed removes it, so a
// closed session is never observable through the registry.
func (r *Registry) SetState(id string, state State) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if state == Closed {
		return r.remove(id)
	}

	s, ok := r.sessions[id]
	if !ok {
		return false
	}
	s.State = state
	return true
}

func (r *Registry) Get(id string) (ClientSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return ClientSession{}, false
	}
	return *s, true
}

func (r *Registry) List() []ClientSession {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]ClientSession, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, *r.sessions[id])
	}
	return result
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
