package procman

import (
	"os/exec"
	"sync"
	"syscall"
)

// Proc wraps a started exec.Cmd as a registry Handle.
// Exit status is reaped by an internal goroutine so the process never
// zombies even if the caller forgets to wait.
type Proc struct {
	cmd  *exec.Cmd
	done chan struct{}

	mu      sync.Mutex
	waitErr error
	exited  bool
}

// Start launches the command and registers it with the registry.
// An empty name is a contract violation and fails fast.
// The registry may be nil, in which case the process is unmanaged.
func Start(reg *Registry, name string, args ...string) (*Proc, error) {
	if name == "" {
		return nil, ErrEmptyCommand
	}

	cmd := exec.Command(name, args...)
	return StartCmd(reg, cmd)
}

// StartCmd starts a prepared exec.Cmd and registers it.
// Use this when the command needs custom stdio or environment.
func StartCmd(reg *Registry, cmd *exec.Cmd) (*Proc, error) {
	if cmd.Path == "" {
		return nil, ErrEmptyCommand
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &Proc{
		cmd:  cmd,
		done: make(chan struct{}),
	}

	go func() {
		err := cmd.Wait()
		p.mu.Lock()
		p.waitErr = err
		p.exited = true
		p.mu.Unlock()
		close(p.done)
		if reg != nil {
			reg.UnregisterHandle(p)
		}
	}()

	if reg != nil {
		if _, err := reg.Register(p); err != nil {
			// Pid collision with a live entry; the process still runs,
			// it is just unmanaged.
			return p, err
		}
	}

	return p, nil
}

// Pid returns the native process id.
func (p *Proc) Pid() int {
	return p.cmd.Process.Pid
}

// Running reports whether the process has not yet exited.
func (p *Proc) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.exited
}

// Terminate sends SIGTERM.
func (p *Proc) Terminate() error {
	if !p.Running() {
		return nil
	}
	return p.cmd.Process.Signal(syscall.SIGTERM)
}

// Kill sends SIGKILL.
func (p *Proc) Kill() error {
	if !p.Running() {
		return nil
	}
	return p.cmd.Process.Kill()
}

// Done is closed when the process has exited.
func (p *Proc) Done() <-chan struct{} {
	return p.done
}

// WaitErr returns the error from Wait once the process has exited.
func (p *Proc) WaitErr() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waitErr
}

// Cmd exposes the underlying command.
func (p *Proc) Cmd() *exec.Cmd {
	return p.cmd
}

// Verify Proc implements Handle at compile time.
var _ Handle = (*Proc)(nil)
