package addrconf

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrRegistryFrozen   = errors.New("handler registry is frozen")
	ErrDuplicateHandler = errors.New("handler already registered")
)

// Handler pushes lease data for one target into the system configuration.
//
// Apply must be safe to call repeatedly with the same lease. Restore puts
// the target back to its pre-override state, or to the system default when
// nothing was saved.
type Handler interface {
	Apply(lease *Lease) error
	Restore() error
}

// Backupper is implemented by handlers that snapshot the system state
// before the first override.
type Backupper interface {
	Backup() error
}

// Registry maps targets to their handlers. Handlers are registered at
// startup; the registry freezes the first time capabilities are computed.
type Registry struct {
	mu       sync.Mutex
	handlers [numTargets]Handler
	frozen   bool
	caps     TargetSet
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(t Target, h Handler) error {
	if !t.Valid() {
		return fmt.Errorf("register %s: invalid target", t)
	}
	if h == nil {
		return fmt.Errorf("register %s: nil handler", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("register %s: %w", t, ErrRegistryFrozen)
	}
	if r.handlers[t] != nil {
		return fmt.Errorf("register %s: %w", t, ErrDuplicateHandler)
	}
	r.handlers[t] = h
	return nil
}

func (r *Registry) Handler(t Target) Handler {
	if !t.Valid() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handlers[t]
}

// Capabilities returns the set of targets with a registered handler. The
// first call freezes the registry and the result is cached from then on.
func (r *Registry) Capabilities() TargetSet {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.frozen {
		for t := Target(0); t < numTargets; t++ {
			if r.handlers[t] != nil {
				r.caps = r.caps.Add(t)
			}
		}
		r.frozen = true
	}
	return r.caps
}
