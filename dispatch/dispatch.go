// Package dispatch implements the asynchronous operation bridge. A Bridge
// owns two goroutines: a worker lane that executes blocking engine calls one
// at a time, and a completion loop that delivers results back to the caller.
//
// The bridge guarantees, per task:
//
//   - Execute runs exactly once, on the worker lane, strictly before Complete.
//   - Complete runs exactly once, on the completion loop. Completions are
//     never concurrent with each other and are delivered in execution order.
//   - The outstanding-operation count is incremented at submission and
//     released exactly once, after Complete returns.
//
// Because every task for a given bridge shares the one worker lane, all
// engine-handle access routed through a bridge is serialized: an open or
// close can never race an in-flight read or write on the same handle.
//
// A panic escaping Complete is deliberately not recovered. A completion
// callback that throws is a programmer error, and swallowing it would hide
// the bug; the process terminates instead.
package dispatch

import (
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrStopped is returned by Submit after the bridge has been stopped.
var ErrStopped = errors.New("dispatch: bridge is stopped")

// defaultQueueDepth bounds how many operations may sit between the caller
// and the worker lane before Submit blocks.
const defaultQueueDepth = 128

// Task packages one operation's two halves. Execute must touch only engine
// state and the task's own outcome slot; Complete must touch only
// caller-visible result construction and callback invocation.
type Task struct {
	Name     string
	Execute  func()
	Complete func()
}

// Bridge is the scheduler for one database handle.
type Bridge struct {
	logger *zap.Logger

	tasks       chan *Task
	completions chan *Task

	// outstanding counts submitted tasks whose Complete has not returned.
	// It is the Go analogue of the host runtime's "keep the process alive
	// while work is in flight" reference.
	outstanding sync.WaitGroup

	mu       sync.RWMutex
	stopped  bool
	loopDone chan struct{}
}

// New starts a bridge. queueDepth <= 0 selects the default.
func New(queueDepth int, logger *zap.Logger) *Bridge {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		logger:      logger,
		tasks:       make(chan *Task, queueDepth),
		completions: make(chan *Task, queueDepth),
		loopDone:    make(chan struct{}),
	}
	go b.workerLane()
	go b.completionLoop()
	return b
}

// Submit hands a task to the worker lane. The task's outcome slot must not
// be touched by the caller after Submit returns; ownership moves to the
// bridge until Complete runs.
func (b *Bridge) Submit(t *Task) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.stopped {
		return ErrStopped
	}
	b.outstanding.Add(1)
	b.tasks <- t
	return nil
}

// Wait blocks until every submitted task has completed.
func (b *Bridge) Wait() {
	b.outstanding.Wait()
}

// Stop rejects new submissions, runs all queued tasks to completion, and
// stops both goroutines. Safe to call more than once.
func (b *Bridge) Stop() {
	b.mu.Lock()
	if b.stopped {
		b.mu.Unlock()
		<-b.loopDone
		return
	}
	b.stopped = true
	close(b.tasks)
	b.mu.Unlock()

	<-b.loopDone
	b.logger.Debug("bridge stopped")
}

func (b *Bridge) workerLane() {
	for t := range b.tasks {
		t.Execute()
		b.completions <- t
	}
	close(b.completions)
}

func (b *Bridge) completionLoop() {
	defer close(b.loopDone)
	for t := range b.completions {
		b.runCompletion(t)
	}
}

func (b *Bridge) runCompletion(t *Task) {
	// Release the outstanding count even if Complete panics, so a Wait
	// elsewhere cannot deadlock the crash path.
	defer b.outstanding.Done()
	if t.Complete != nil {
		t.Complete()
	}
}
