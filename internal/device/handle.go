package device

import (
	"context"
	"sync"
	"time"
)

// Protocol is the per-device command surface.
//
// Implementations do not need to be safe for concurrent use; a Handle
// never calls its protocol from two goroutines at once.
type Protocol interface {
	TurnOn(ctx context.Context) error
	TurnOff(ctx context.Context) error
	Open(ctx context.Context) error
	Close(ctx context.Context) error
	Stop(ctx context.Context) error
	SetPosition(ctx context.Context, percent int) error
	GetBatteryPercent(ctx context.Context) (int, error)
	GetPosition(ctx context.Context) (int, error)
}

// ProtocolFactory binds a protocol to an address and optional password.
type ProtocolFactory func(address, password string) Protocol

// Handle is the single access point to one physical device.
//
// Work submitted with Submit runs on a per-handle goroutine in submission
// order, one job at a time. Exclusive additionally guards direct protocol
// use, so nothing else talks to the device while a job holds it.
type Handle struct {
	address       string
	authenticated bool
	protocol      Protocol

	// mu is held for the whole of an Exclusive call.
	mu sync.Mutex

	queueMu  sync.Mutex
	queue    []func()
	draining bool

	statsMu sync.RWMutex
	stats   HandleStats
}

// HandleStats summarises the outcome of operations on a handle.
type HandleStats struct {
	Operations  int
	Failures    int
	LastError   string
	LastAttempt time.Time
}

// HandleInfo is a read-only snapshot of a handle for listings.
type HandleInfo struct {
	Address       string
	Authenticated bool
	Stats         HandleStats
}

func newHandle(address, password string, factory ProtocolFactory) *Handle {
	return &Handle{
		address:       address,
		authenticated: password != "",
		protocol:      factory(address, password),
	}
}

// Address returns the canonical device address.
func (h *Handle) Address() string {
	return h.address
}

// Authenticated reports whether a password was configured for the device.
func (h *Handle) Authenticated() bool {
	return h.authenticated
}

// Exclusive runs fn with sole access to the device protocol.
func (h *Handle) Exclusive(fn func(p Protocol) error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return fn(h.protocol)
}

// Submit queues job behind any earlier jobs for this handle. It never blocks
// on device I/O.
func (h *Handle) Submit(job func()) {
	h.queueMu.Lock()
	h.queue = append(h.queue, job)
	if h.draining {
		h.queueMu.Unlock()
		return
	}
	h.draining = true
	h.queueMu.Unlock()

	go h.drain()
}

func (h *Handle) drain() {
	for {
		h.queueMu.Lock()
		if len(h.queue) == 0 {
			h.draining = false
			h.queueMu.Unlock()
			return
		}
		job := h.queue[0]
		h.queue[0] = nil
		h.queue = h.queue[1:]
		h.queueMu.Unlock()

		job()
	}
}

// Pending returns the number of queued jobs not yet started.
func (h *Handle) Pending() int {
	h.queueMu.Lock()
	defer h.queueMu.Unlock()
	return len(h.queue)
}

// Record stores the outcome of one operation.
func (h *Handle) Record(err error) {
	h.statsMu.Lock()
	defer h.statsMu.Unlock()

	h.stats.Operations++
	h.stats.LastAttempt = time.Now().UTC()
	if err != nil {
		h.stats.Failures++
		h.stats.LastError = err.Error()
	}
}

// Stats returns a copy of the handle's counters.
func (h *Handle) Stats() HandleStats {
	h.statsMu.RLock()
	defer h.statsMu.RUnlock()
	return h.stats
}

// Info returns a snapshot for listings.
func (h *Handle) Info() HandleInfo {
	return HandleInfo{
		Address:       h.address,
		Authenticated: h.authenticated,
		Stats:         h.Stats(),
	}
}
