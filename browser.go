package invoicegen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Launch and surface-acquisition retry budgets.
const (
	launchAttempts    = 3
	launchBackoffUnit = 2 * time.Second
	staleSettleDelay  = time.Second
	surfaceAttempts   = 3
)

// connState tracks the render process lifecycle.
type connState int

const (
	stateUninitialized connState = iota
	stateLaunching
	stateReady
	stateDisconnected
)

func (s connState) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateLaunching:
		return "launching"
	case stateReady:
		return "ready"
	case stateDisconnected:
		return "disconnected"
	}
	return "unknown"
}

// surface is one isolated rendering context within the browser process.
// Implementations must tolerate Close being called after a failure.
type surface interface {
	SetViewport(width, height int) error
	LoadHTML(ctx context.Context, htmlContent string) error
	WaitResources(ctx context.Context) error
	CapturePDF(opts captureOptions) ([]byte, error)
	CapturePNG(opts *ScreenshotOptions) ([]byte, error)
	Close() error
}

// browserHandle abstracts a running browser process to enable testing
// without launching Chrome.
type browserHandle interface {
	// Alive reports whether the process still answers; a handle that
	// cannot enumerate its open surfaces is considered disconnected.
	Alive() bool
	NewSurface() (surface, error)
	Close() error
}

// launchFunc starts a browser process. The default is rodLaunch.
type launchFunc func(cfg browserConfig) (browserHandle, error)

// browserConfig holds launch parameters for the browser process.
type browserConfig struct {
	Bin string // explicit browser binary, empty = rod's default resolution
}

// processManager supervises the shared render process: launch with
// retry and backoff, health tracking, and synchronized relaunch. One
// instance is shared by all concurrent render requests; the mutex makes
// relaunch single-flight, so callers observing a disconnect wait on the
// in-flight relaunch instead of starting another.
type processManager struct {
	mu      sync.Mutex
	launch  launchFunc
	handle  browserHandle
	state   connState
	lastErr error
	cfg     browserConfig
	log     *zap.Logger
}

func newProcessManager(cfg browserConfig, launch launchFunc, log *zap.Logger) *processManager {
	if launch == nil {
		launch = rodLaunch
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &processManager{launch: launch, cfg: cfg, log: log}
}

// Surface returns a fresh rendering surface, relaunching the browser
// process if it is found disconnected between attempts.
func (m *processManager) Surface(ctx context.Context) (surface, error) {
	var lastErr error
	for attempt := 1; attempt <= surfaceAttempts; attempt++ {
		handle, err := m.ready(ctx)
		if err != nil {
			return nil, err
		}

		s, err := handle.NewSurface()
		if err == nil {
			return s, nil
		}

		lastErr = err
		m.markDisconnected(err)
		m.log.Warn("surface creation failed",
			zap.Int("attempt", attempt),
			zap.Error(err))
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrSurfaceCreate, surfaceAttempts, lastErr)
}

// Close tears down the browser process. Safe to call multiple times.
func (m *processManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == nil {
		return nil
	}
	err := m.handle.Close()
	m.handle = nil
	m.state = stateUninitialized
	return err
}

// State returns the current lifecycle state.
func (m *processManager) State() connState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ready returns a healthy handle, launching or relaunching as needed.
// The health check runs on every call: event-driven disconnect callbacks
// are replaced by this explicit probe so the supervisor works the same
// from any goroutine.
func (m *processManager) ready(ctx context.Context) (browserHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == stateReady && m.handle != nil && m.handle.Alive() {
		return m.handle, nil
	}
	return m.relaunchLocked(ctx)
}

// relaunchLocked launches the browser with retry and backoff. Caller
// must hold m.mu.
func (m *processManager) relaunchLocked(ctx context.Context) (browserHandle, error) {
	m.state = stateLaunching
	m.log.Info("launching render process")

	var lastErr error
	for attempt := 1; attempt <= launchAttempts; attempt++ {
		// Close any stale handle first and give the old process a
		// moment to release its resources.
		if m.handle != nil {
			if err := m.handle.Close(); err != nil {
				m.log.Warn("closing stale render process", zap.Error(err))
			}
			m.handle = nil
			if err := sleepCtx(ctx, staleSettleDelay); err != nil {
				m.state = stateDisconnected
				return nil, err
			}
		}

		handle, err := m.launch(m.cfg)
		if err == nil && handle.Alive() {
			m.handle = handle
			m.state = stateReady
			m.lastErr = nil
			m.log.Info("render process ready", zap.Int("attempt", attempt))
			return handle, nil
		}

		if err == nil {
			err = fmt.Errorf("process unresponsive after launch")
			_ = handle.Close()
		}
		lastErr = err
		m.log.Warn("render process launch failed",
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < launchAttempts {
			if err := sleepCtx(ctx, time.Duration(attempt)*launchBackoffUnit); err != nil {
				m.state = stateDisconnected
				return nil, err
			}
		}
	}

	m.state = stateDisconnected
	m.lastErr = lastErr
	return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, lastErr)
}

// markDisconnected flips the state so the next request relaunches.
func (m *processManager) markDisconnected(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = stateDisconnected
	m.lastErr = err
}

// sleepCtx sleeps for d or until the context is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
