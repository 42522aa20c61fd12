package session

import (
	"sync"
	"time"
)

// Registry hands out one tracker per driver, created lazily on first use.
// The process owns the registry and passes it to collaborators explicitly.
type Registry struct {
	mu       sync.Mutex
	cfg      Config
	trackers map[string]*Tracker
}

// NewRegistry creates an empty registry using cfg for every tracker.
func NewRegistry(cfg Config) *Registry {
	cfg.applyDefaults()
	return &Registry{cfg: cfg, trackers: make(map[string]*Tracker)}
}

// ForDriver returns the driver's tracker, creating and starting it on first
// use.
func (r *Registry) ForDriver(driverID string) *Tracker {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[driverID]
	if !ok {
		t = NewTracker(r.cfg)
		t.StartSession(time.Now())
		r.trackers[driverID] = t
	}
	return t
}

// Get returns an existing tracker without creating one.
func (r *Registry) Get(driverID string) (*Tracker, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.trackers[driverID]
	return t, ok
}

// End terminates a driver's session and drops the tracker.
func (r *Registry) End(driverID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t, ok := r.trackers[driverID]; ok {
		t.EndSession()
		delete(r.trackers, driverID)
	}
}
