package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"mekaniku/internal/logger"
)

// TaskFunc is one best-effort side effect. The context carries the per-task timeout.
type TaskFunc func(ctx context.Context) error

type task struct {
	name string
	fn   TaskFunc
}

type Options struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

type Stats struct {
	Succeeded int64
	Failed    int64
	Dropped   int64
}

// Dispatcher runs post-commit side effects on a fixed worker pool. Each task
// gets exactly one attempt; failures are logged and never reported back.
type Dispatcher struct {
	queue   chan task
	timeout time.Duration
	log     *logger.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	succeeded atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

func New(opts Options, log *logger.Logger) *Dispatcher {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.QueueSize < 1 {
		opts.QueueSize = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}

	d := &Dispatcher{
		queue:   make(chan task, opts.QueueSize),
		timeout: opts.Timeout,
		log:     log,
	}
	for i := 0; i < opts.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	log.Info("DISPATCH", fmt.Sprintf("Dispatcher started (workers=%d, queue=%d, timeout=%s)", opts.Workers, opts.QueueSize, opts.Timeout))
	return d
}

// Dispatch enqueues fn without blocking. It returns false when the task was
// dropped because the queue is full or the dispatcher is closed.
func (d *Dispatcher) Dispatch(name string, fn TaskFunc) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.dropped.Add(1)
		d.log.Warn("DISPATCH", fmt.Sprintf("Dropped %s: dispatcher closed", name))
		return false
	}

	select {
	case d.queue <- task{name: name, fn: fn}:
		return true
	default:
		d.dropped.Add(1)
		d.log.Warn("DISPATCH", fmt.Sprintf("Dropped %s: queue full", name))
		return false
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for t := range d.queue {
		d.run(t)
	}
}

func (d *Dispatcher) run(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := runSafely(ctx, t.fn)
	if err != nil {
		d.failed.Add(1)
		d.log.Warn("DISPATCH", fmt.Sprintf("%s failed: %v", t.name, err))
		return
	}
	d.succeeded.Add(1)
	d.log.Debug("DISPATCH", fmt.Sprintf("%s done", t.name))
}

func runSafely(ctx context.Context, fn TaskFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return fn(ctx)
}

// Close stops accepting tasks, drains the queue and waits for the workers.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.log.Info("DISPATCH", "Dispatcher drained")
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Succeeded: d.succeeded.Load(),
		Failed:    d.failed.Load(),
		Dropped:   d.dropped.Load(),
	}
}

// Inline runs each task synchronously on the caller's goroutine, under the
// same timeout and failure rules. Used by tests and one-shot tools.
type Inline struct {
	Timeout time.Duration
	Log     *logger.Logger
}

func (i Inline) Dispatch(name string, fn TaskFunc) bool {
	timeout := i.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := runSafely(ctx, fn); err != nil && i.Log != nil {
		i.Log.Warn("DISPATCH", fmt.Sprintf("%s failed: %v", name, err))
	}
	return true
}
