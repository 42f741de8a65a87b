// Package shutdown coordinates graceful teardown of the process: callbacks
// run in priority order so outstanding storage operations drain before the
// database closes.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// Func is one registered teardown step. Lower priorities run first.
type Func struct {
	Name     string
	Priority int
	Fn       func(ctx context.Context) error
}

// Manager runs registered teardown steps on demand or on SIGINT/SIGTERM.
type Manager struct {
	logger  *zap.Logger
	timeout time.Duration

	mu    sync.Mutex
	funcs []Func

	done chan struct{}
	once sync.Once
}

// NewManager creates a manager with the given overall teardown timeout.
func NewManager(timeout time.Duration, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		logger:  logger,
		timeout: timeout,
		done:    make(chan struct{}),
	}
}

// Register adds a teardown step.
func (m *Manager) Register(name string, priority int, fn func(ctx context.Context) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.funcs = append(m.funcs, Func{Name: name, Priority: priority, Fn: fn})
	sort.SliceStable(m.funcs, func(i, j int) bool {
		return m.funcs[i].Priority < m.funcs[j].Priority
	})
}

// Listen triggers Shutdown on SIGINT or SIGTERM.
func (m *Manager) Listen() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		m.logger.Info("received signal", zap.String("signal", sig.String()))
		m.Shutdown()
	}()
}

// Shutdown runs the registered steps in priority order, once.
func (m *Manager) Shutdown() {
	m.once.Do(func() {
		defer close(m.done)
		m.run()
	})
}

// Wait blocks until Shutdown has finished.
func (m *Manager) Wait() {
	<-m.done
}

func (m *Manager) run() {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	m.mu.Lock()
	funcs := make([]Func, len(m.funcs))
	copy(funcs, m.funcs)
	m.mu.Unlock()

	for _, f := range funcs {
		start := time.Now()
		if err := m.runOne(ctx, f); err != nil {
			m.logger.Error("teardown step failed", zap.String("step", f.Name), zap.Error(err))
			continue
		}
		m.logger.Info("teardown step done",
			zap.String("step", f.Name), zap.Duration("took", time.Since(start)))
	}
}

func (m *Manager) runOne(ctx context.Context, f Func) error {
	errCh := make(chan error, 1)
	go func() { errCh <- f.Fn(ctx) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("shutdown: %s: %w", f.Name, ctx.Err())
	}
}
