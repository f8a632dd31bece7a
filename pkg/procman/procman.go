// Package procman tracks subprocesses spawned on behalf of the assistant and
// guarantees their cleanup.
//
// The broader agent spawns long-lived interactive subprocesses (model scorers,
// shells, test runners) for tool calls; without a central registry these
// become orphans when a session ends abnormally. A single Registry is
// constructed at startup and injected by reference into anything that spawns
// processes. KillAll is safe to call repeatedly, once on the normal exit path
// and again from the signal handler.
package procman

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// Sentinel errors.
var (
	// ErrEmptyCommand is returned when a command with no name is spawned.
	ErrEmptyCommand = errors.New("procman: empty command")

	// ErrAlreadyRegistered is returned when an id is registered twice.
	ErrAlreadyRegistered = errors.New("procman: id already registered")
)

// Handle is the registry's view of a running subprocess.
type Handle interface {
	// Pid returns the native process id.
	Pid() int

	// Running reports whether the process has not yet exited.
	Running() bool

	// Terminate asks the process to exit gracefully (SIGTERM).
	Terminate() error

	// Kill forcibly ends the process (SIGKILL).
	Kill() error

	// Done is closed when the process has exited.
	Done() <-chan struct{}
}

// DefaultGracePeriod is how long KillAll waits between terminate and kill.
const DefaultGracePeriod = 2 * time.Second

// Registry is a process-wide registry of spawned subprocesses.
// All methods are safe for concurrent use.
type Registry struct {
	mu      sync.Mutex
	handles map[int]Handle

	grace  time.Duration
	logger *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handles: make(map[int]Handle),
		grace:   DefaultGracePeriod,
		logger:  logger.With("component", "procman"),
	}
}

// SetGracePeriod overrides the terminate-to-kill grace period.
func (r *Registry) SetGracePeriod(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.grace = d
}

// Register adds a handle under its native pid and returns the id.
func (r *Registry) Register(h Handle) (int, error) {
	return r.RegisterID(h, h.Pid())
}

// RegisterID adds a handle under an explicit id.
func (r *Registry) RegisterID(h Handle, id int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handles[id]; ok {
		return 0, ErrAlreadyRegistered
	}
	r.handles[id] = h
	return id, nil
}

// Get returns the handle registered under id, or nil.
func (r *Registry) Get(id int) Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handles[id]
}

// Unregister removes the handle registered under id.
// Removing an unknown id is not an error.
func (r *Registry) Unregister(id int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handles, id)
}

// UnregisterHandle removes a handle regardless of the id it was stored under.
func (r *Registry) UnregisterHandle(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, reg := range r.handles {
		if reg == h {
			delete(r.handles, id)
			return
		}
	}
}

// Len returns the number of registered handles.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles)
}

// KillAll terminates every registered process that is still running.
//
// It snapshots the handle set and clears the registry up front, so concurrent
// registration during shutdown cannot corrupt iteration and a repeated call is
// a no-op. Each running handle gets a graceful terminate, then a shared grace
// period, then a force kill if it is still alive. Failures are logged and
// never propagated; this runs on shutdown paths.
func (r *Registry) KillAll() {
	r.mu.Lock()
	snapshot := make([]Handle, 0, len(r.handles))
	for _, h := range r.handles {
		snapshot = append(snapshot, h)
	}
	r.handles = make(map[int]Handle)
	grace := r.grace
	r.mu.Unlock()

	var terminated []Handle
	for _, h := range snapshot {
		if !h.Running() {
			continue
		}
		if err := h.Terminate(); err != nil {
			r.logger.Warn("terminate failed", "pid", h.Pid(), "error", err)
		}
		terminated = append(terminated, h)
	}

	if len(terminated) == 0 {
		return
	}

	deadline := time.NewTimer(grace)
	defer deadline.Stop()

	for _, h := range terminated {
		select {
		case <-h.Done():
		case <-deadline.C:
			// Grace period spent; force-kill this and the rest.
			for _, straggler := range terminated {
				if !straggler.Running() {
					continue
				}
				if err := straggler.Kill(); err != nil {
					r.logger.Warn("kill failed", "pid", straggler.Pid(), "error", err)
				}
			}
			return
		}
	}
}
