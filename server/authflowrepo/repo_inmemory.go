package authflowrepo

import (
	"errors"
	"fmt"
	"sync"
)

// InMemoryRepo is a thread-safe in-memory implementation of the Repo interface
type InMemoryRepo struct {
	mu     sync.RWMutex
	states map[string]*AuthFlowState
	ports  map[int]string // port -> state
}

// NewInMemoryRepo creates a new in-memory auth flow state repository
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		states: make(map[string]*AuthFlowState),
		ports:  make(map[int]string),
	}
}

// Upsert stores or updates an auth flow state. Port 0 (ephemeral) never conflicts.
func (r *InMemoryRepo) Upsert(state string, authState *AuthFlowState) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}
	if authState == nil {
		return errors.New("authState cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if authState.Port != 0 {
		if owner, ok := r.ports[authState.Port]; ok && owner != state {
			return fmt.Errorf("%w: %d", ErrPortInUse, authState.Port)
		}
	}
	if existing, ok := r.states[state]; ok && existing.Port != authState.Port {
		delete(r.ports, existing.Port)
	}

	// Create a copy to prevent external modifications
	copied := *authState
	r.states[state] = &copied
	if authState.Port != 0 {
		r.ports[authState.Port] = state
	}
	return nil
}

// Get retrieves an auth flow state by state parameter
func (r *InMemoryRepo) Get(state string) (*AuthFlowState, error) {
	if state == "" {
		return nil, errors.New("state cannot be empty")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	authState, exists := r.states[state]
	if !exists {
		return nil, ErrStateNotFound
	}

	// Return a copy to prevent external modifications
	copied := *authState
	return &copied, nil
}

// Delete removes an auth flow state and releases its port
func (r *InMemoryRepo) Delete(state string) error {
	if state == "" {
		return errors.New("state cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.states[state]; ok {
		if r.ports[existing.Port] == state {
			delete(r.ports, existing.Port)
		}
		delete(r.states, state)
	}
	return nil
}

// Active returns the number of flows currently registered
func (r *InMemoryRepo) Active() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}
