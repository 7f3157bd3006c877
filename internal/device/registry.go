package device

import (
	"slices"
	"strings"
	"sync"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry maps device addresses to handles.
//
// Handles are created on first use and live for the rest of the process.
// All public methods are thread-safe.
type Registry struct {
	passwords map[string]string
	factory   ProtocolFactory

	handles map[string]*Handle
	mu      sync.Mutex

	logger Logger
}

// NewRegistry creates a registry. passwords maps canonical addresses to
// device passwords and is not modified.
func NewRegistry(passwords map[string]string, factory ProtocolFactory) *Registry {
	if passwords == nil {
		passwords = map[string]string{}
	}
	return &Registry{
		passwords: passwords,
		factory:   factory,
		handles:   make(map[string]*Handle),
		logger:    noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Resolve returns the handle for address, creating it if needed.
//
// Addresses differing only in case resolve to the same handle. Concurrent
// first calls for one address all receive the same handle.
func (r *Registry) Resolve(address string) *Handle {
	key := strings.ToLower(address)

	r.mu.Lock()
	defer r.mu.Unlock()

	if h, ok := r.handles[key]; ok {
		return h
	}

	password, hasPassword := r.passwords[key]
	h := newHandle(key, password, r.factory)
	r.handles[key] = h

	r.logger.Debug("device handle created", "address", key, "authenticated", hasPassword)
	return h
}

// Count returns the number of handles created so far.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// List returns snapshots of all handles ordered by address.
func (r *Registry) List() []HandleInfo {
	r.mu.Lock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.Unlock()

	infos := make([]HandleInfo, 0, len(handles))
	for _, h := range handles {
		infos = append(infos, h.Info())
	}
	slices.SortFunc(infos, func(a, b HandleInfo) int {
		return strings.Compare(a.Address, b.Address)
	})
	return infos
}
