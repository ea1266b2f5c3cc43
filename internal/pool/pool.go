// Package pool runs work items on a fixed set of goroutines. Items are queued
// in FIFO order; Shutdown closes the queue and waits for every queued item to
// finish.
package pool

import (
	"errors"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kingrea/birdwatcher/internal/output"
)

// DefaultSize is used when New receives a non-positive size.
const DefaultSize = 10

// ErrClosed is returned by Submit once Shutdown has been called.
var ErrClosed = errors.New("pool: shut down")

// Option customizes a Pool.
type Option func(*Pool)

// WithLogger attaches a structured logger for recovered panics.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pool) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPanicHandler receives the error recovered from a panicking item.
func WithPanicHandler(fn func(*output.PanicError)) Option {
	return func(p *Pool) {
		p.onPanic = fn
	}
}

// WithQueueLimit bounds the number of waiting items. Submit blocks while the
// queue is full.
func WithQueueLimit(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.limit = n
		}
	}
}

// Stats summarizes how many items a pool has processed.
type Stats struct {
	Completed int64
	Panicked  int64
}

// Pool is a fixed-size worker pool.
type Pool struct {
	size  int
	limit int

	mu       sync.Mutex
	notEmpty *sync.Cond
	notFull  *sync.Cond
	queue    []func()
	closed   bool

	group errgroup.Group
	once  sync.Once

	completed atomic.Int64
	panicked  atomic.Int64

	logger  *zap.Logger
	onPanic func(*output.PanicError)
}

// New starts a pool with size workers.
func New(size int, opts ...Option) *Pool {
	if size <= 0 {
		size = DefaultSize
	}
	p := &Pool{size: size, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	p.notEmpty = sync.NewCond(&p.mu)
	p.notFull = sync.NewCond(&p.mu)
	for i := 0; i < size; i++ {
		p.group.Go(p.work)
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit enqueues item. It blocks while a bounded queue is full.
func (p *Pool) Submit(item func()) error {
	if item == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && p.limit > 0 && len(p.queue) >= p.limit {
		p.notFull.Wait()
	}
	if p.closed {
		return ErrClosed
	}
	p.queue = append(p.queue, item)
	p.notEmpty.Signal()
	return nil
}

// Shutdown stops accepting items and blocks until every queued item has
// completed. Calling it more than once is safe.
func (p *Pool) Shutdown() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.notEmpty.Broadcast()
		p.notFull.Broadcast()
		p.mu.Unlock()
	})
	_ = p.group.Wait()
}

// Stats returns the processed item counts.
func (p *Pool) Stats() Stats {
	return Stats{Completed: p.completed.Load(), Panicked: p.panicked.Load()}
}

func (p *Pool) work() error {
	for {
		item, ok := p.next()
		if !ok {
			return nil
		}
		p.run(item)
	}
}

// next pops the oldest item, waiting while the queue is empty and open.
func (p *Pool) next() (func(), bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for len(p.queue) == 0 && !p.closed {
		p.notEmpty.Wait()
	}
	if len(p.queue) == 0 {
		return nil, false
	}
	item := p.queue[0]
	p.queue[0] = nil
	p.queue = p.queue[1:]
	p.notFull.Signal()
	return item, true
}

func (p *Pool) run(item func()) {
	err := output.Guard(func() error {
		item()
		return nil
	})
	var panicErr *output.PanicError
	if errors.As(err, &panicErr) {
		p.panicked.Add(1)
		p.logger.Error("pool item panicked",
			zap.Any("value", panicErr.Value),
			zap.ByteString("stack", panicErr.Stack),
		)
		if p.onPanic != nil {
			p.onPanic(panicErr)
		}
		return
	}
	p.completed.Add(1)
}
