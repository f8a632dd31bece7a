package procman_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aria-voice/go-aria/pkg/procman"
)

// fakeHandle is a controllable Handle for registry tests.
type fakeHandle struct {
	pid int

	mu         sync.Mutex
	running    bool
	terminated int
	killed     int
	done       chan struct{}

	// ignoreTerm simulates a process that does not honor SIGTERM.
	ignoreTerm bool
}

func newFakeHandle(pid int, running bool) *fakeHandle {
	h := &fakeHandle{pid: pid, running: running, done: make(chan struct{})}
	if !running {
		close(h.done)
	}
	return h
}

func (h *fakeHandle) Pid() int { return h.pid }

func (h *fakeHandle) Running() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func (h *fakeHandle) Terminate() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.terminated++
	if !h.ignoreTerm && h.running {
		h.running = false
		close(h.done)
	}
	return nil
}

func (h *fakeHandle) Kill() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.killed++
	if h.running {
		h.running = false
		close(h.done)
	}
	return nil
}

func (h *fakeHandle) Done() <-chan struct{} { return h.done }

func (h *fakeHandle) counts() (int, int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.terminated, h.killed
}

func TestRegistry(t *testing.T) {
	t.Run("Register defaults to pid", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		h := newFakeHandle(101, true)

		id, err := reg.Register(h)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if id != 101 {
			t.Errorf("expected id 101, got %d", id)
		}
		if reg.Get(101) != procman.Handle(h) {
			t.Error("expected Get to return the registered handle")
		}
	})

	t.Run("Get unknown id returns nil", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		if reg.Get(999) != nil {
			t.Error("expected nil for unknown id")
		}
	})

	t.Run("Duplicate id is rejected", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		h := newFakeHandle(7, true)

		if _, err := reg.Register(h); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := reg.Register(h); !errors.Is(err, procman.ErrAlreadyRegistered) {
			t.Errorf("expected ErrAlreadyRegistered, got %v", err)
		}
	})

	t.Run("Unregister removes handle", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		h := newFakeHandle(12, true)

		reg.Register(h)
		reg.Unregister(12)
		if reg.Get(12) != nil {
			t.Error("expected handle removed")
		}
	})

	t.Run("UnregisterHandle removes by identity", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		h := newFakeHandle(13, true)

		reg.Register(h)
		reg.UnregisterHandle(h)
		if reg.Len() != 0 {
			t.Error("expected empty registry")
		}
	})
}

func TestKillAll(t *testing.T) {
	t.Run("Terminates running handles and clears registry", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		reg.SetGracePeriod(100 * time.Millisecond)

		running := []*fakeHandle{
			newFakeHandle(1, true),
			newFakeHandle(2, true),
			newFakeHandle(3, true),
		}
		for _, h := range running {
			reg.Register(h)
		}

		reg.KillAll()

		for _, h := range running {
			term, _ := h.counts()
			if term != 1 {
				t.Errorf("pid %d: expected 1 terminate, got %d", h.pid, term)
			}
			if h.Running() {
				t.Errorf("pid %d: still running", h.pid)
			}
		}
		if reg.Len() != 0 {
			t.Errorf("expected empty registry, got %d entries", reg.Len())
		}
	})

	t.Run("Already exited handles receive no signal", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		exited := newFakeHandle(4, false)
		reg.Register(exited)

		reg.KillAll()

		term, killed := exited.counts()
		if term != 0 || killed != 0 {
			t.Errorf("expected no signals, got terminate=%d kill=%d", term, killed)
		}
	})

	t.Run("Stragglers are force killed after grace", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		reg.SetGracePeriod(50 * time.Millisecond)

		stubborn := newFakeHandle(5, true)
		stubborn.ignoreTerm = true
		reg.Register(stubborn)

		reg.KillAll()

		term, killed := stubborn.counts()
		if term != 1 {
			t.Errorf("expected 1 terminate, got %d", term)
		}
		if killed != 1 {
			t.Errorf("expected 1 kill, got %d", killed)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		reg.SetGracePeriod(50 * time.Millisecond)

		h := newFakeHandle(6, true)
		reg.Register(h)

		reg.KillAll()
		reg.KillAll()

		term, _ := h.counts()
		if term != 1 {
			t.Errorf("expected exactly 1 terminate across repeated calls, got %d", term)
		}
	})

	t.Run("Concurrent registration does not corrupt shutdown", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		reg.SetGracePeriod(50 * time.Millisecond)

		for i := 0; i < 10; i++ {
			reg.Register(newFakeHandle(100+i, true))
		}

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				reg.Register(newFakeHandle(1000+i, true))
			}
		}()

		reg.KillAll()
		wg.Wait()
	})
}

func TestStart(t *testing.T) {
	t.Run("Empty command fails fast", func(t *testing.T) {
		reg := procman.NewRegistry(nil)
		if _, err := procman.Start(reg, ""); !errors.Is(err, procman.ErrEmptyCommand) {
			t.Errorf("expected ErrEmptyCommand, got %v", err)
		}
	})

	t.Run("Started process is registered until exit", func(t *testing.T) {
		reg := procman.NewRegistry(nil)

		p, err := procman.Start(reg, "true")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reg.Get(p.Pid()) == nil && p.Running() {
			t.Error("expected running process to be registered")
		}

		select {
		case <-p.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("process did not exit")
		}
		if p.Running() {
			t.Error("expected Running false after exit")
		}
	})
}
