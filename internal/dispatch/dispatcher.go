package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/imamik/stratus/internal/metrics"
)

var (
	// ErrBusy is returned when the key already holds a lease.
	ErrBusy = errors.New("operation already in progress")
	// ErrClosed is returned after Shutdown has been called.
	ErrClosed = errors.New("dispatcher is shut down")
	// ErrLeaseUsed is returned when a lease is started or released twice.
	ErrLeaseUsed = errors.New("lease already used")
)

// Work is a unit of background work. Its error is logged and counted only;
// work that must record failure elsewhere has to do so itself.
type Work func(ctx context.Context) error

// Dispatcher tracks leases and runs background work.
type Dispatcher struct {
	mu     sync.Mutex
	leases map[string]*Lease
	closed bool
	wg     sync.WaitGroup

	log           logr.Logger
	enableMetrics bool
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger used for task results.
func WithLogger(l logr.Logger) Option {
	return func(d *Dispatcher) {
		d.log = l
	}
}

// WithMetrics enables Prometheus recording of task results.
func WithMetrics(enabled bool) Option {
	return func(d *Dispatcher) {
		d.enableMetrics = enabled
	}
}

// New returns an empty Dispatcher.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		leases: make(map[string]*Lease),
		log:    logr.Discard(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Lease is an exclusive reservation of a key.
type Lease struct {
	d    *Dispatcher
	key  string
	once sync.Once
	used bool
}

// Key returns the leased key.
func (l *Lease) Key() string {
	return l.key
}

// Acquire reserves key. It returns ErrBusy if the key is leased and
// ErrClosed after Shutdown.
func (d *Dispatcher) Acquire(key string) (*Lease, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	if _, busy := d.leases[key]; busy {
		if d.enableMetrics {
			metrics.RecordLeaseRejection()
		}
		return nil, fmt.Errorf("%w: %s", ErrBusy, key)
	}
	l := &Lease{d: d, key: key}
	d.leases[key] = l
	// Counted from acquisition so Shutdown also waits for leases that are
	// still in their synchronous part.
	d.wg.Add(1)
	return l, nil
}

// Busy reports whether key currently holds a lease.
func (d *Dispatcher) Busy(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.leases[key]
	return ok
}

// InFlight returns the number of held leases.
func (d *Dispatcher) InFlight() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.leases)
}

// Submit acquires key and runs work in the background.
func (d *Dispatcher) Submit(ctx context.Context, key, name string, work Work) error {
	l, err := d.Acquire(key)
	if err != nil {
		return err
	}
	return l.Go(ctx, name, work)
}

// Shutdown stops accepting new leases and waits for held leases to finish or
// for ctx to end.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %d background tasks: %w", d.InFlight(), ctx.Err())
	}
}

// Release frees a lease that was not handed to Go. Once Go has started the
// work, the lease belongs to it and Release is a no-op, so callers can defer
// Release unconditionally.
func (l *Lease) Release() {
	l.d.mu.Lock()
	used := l.used
	l.d.mu.Unlock()
	if used {
		return
	}
	l.once.Do(l.release)
}

func (l *Lease) release() {
	d := l.d
	d.mu.Lock()
	if d.leases[l.key] == l {
		delete(d.leases, l.key)
	}
	d.mu.Unlock()
	d.wg.Done()
}

// Go runs work in its own goroutine and releases the lease when it returns.
// The goroutine's context keeps ctx's values (logger, request identity) but
// not its cancellation, so the work outlives the request that started it.
// Errors and panics are logged and counted, never propagated.
func (l *Lease) Go(ctx context.Context, name string, work Work) error {
	d := l.d
	d.mu.Lock()
	if l.used || d.leases[l.key] != l {
		d.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrLeaseUsed, l.key)
	}
	l.used = true
	d.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	log := d.log.WithValues("task", name, "key", l.key)

	if d.enableMetrics {
		metrics.TaskStarted()
	}

	go func() {
		defer l.once.Do(l.release)

		start := time.Now()
		result := "success"
		err := run(bg, work)
		var panicErr *PanicError
		switch {
		case errors.As(err, &panicErr):
			result = "panic"
			log.Error(err, "background task panicked", "stack", string(panicErr.Stack))
		case err != nil:
			result = "error"
			log.Error(err, "background task failed", "duration", time.Since(start).Round(time.Millisecond).String())
		default:
			log.V(1).Info("background task completed", "duration", time.Since(start).Round(time.Millisecond).String())
		}
		if d.enableMetrics {
			metrics.TaskFinished(result)
		}
	}()
	return nil
}

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}

// Recover converts a panic into a *PanicError assigned to *errp.
// Use it as a deferred call.
func Recover(errp *error) {
	if r := recover(); r != nil {
		*errp = &PanicError{Value: r, Stack: debug.Stack()}
	}
}

func run(ctx context.Context, work Work) (err error) {
	defer Recover(&err)
	return work(ctx)
}
