package pool

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kingrea/birdwatcher/internal/output"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestShutdownWaitsForAllItems(t *testing.T) {
	p := New(5)
	var done atomic.Int64
	for i := 0; i < 100; i++ {
		require.NoError(t, p.Submit(func() {
			time.Sleep(time.Millisecond)
			done.Add(1)
		}))
	}
	p.Shutdown()
	assert.EqualValues(t, 100, done.Load())
	assert.EqualValues(t, 100, p.Stats().Completed)
}

func TestFailingItemDoesNotAffectOthers(t *testing.T) {
	var (
		mu       sync.Mutex
		succeeds int
		failures int
	)
	p := New(5, WithPanicHandler(func(*output.PanicError) {
		mu.Lock()
		failures++
		mu.Unlock()
	}))
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, p.Submit(func() {
			if i == 42 {
				panic("item 42 exploded")
			}
			mu.Lock()
			succeeds++
			mu.Unlock()
		}))
	}
	p.Shutdown()
	assert.Equal(t, 99, succeeds)
	assert.Equal(t, 1, failures)
	assert.Equal(t, Stats{Completed: 99, Panicked: 1}, p.Stats())
}

func TestNeverRunsMoreThanSizeConcurrently(t *testing.T) {
	const size = 3
	p := New(size)
	var running, peak atomic.Int64
	for i := 0; i < 30; i++ {
		require.NoError(t, p.Submit(func() {
			now := running.Add(1)
			for {
				old := peak.Load()
				if now <= old || peak.CompareAndSwap(old, now) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
		}))
	}
	p.Shutdown()
	assert.LessOrEqual(t, peak.Load(), int64(size))
	assert.Equal(t, size, p.Size())
}

func TestSubmitAfterShutdownFails(t *testing.T) {
	p := New(2)
	p.Shutdown()
	err := p.Submit(func() {})
	assert.True(t, errors.Is(err, ErrClosed))
	p.Shutdown()
}

func TestNonPositiveSizeUsesDefault(t *testing.T) {
	p := New(0)
	defer p.Shutdown()
	assert.Equal(t, DefaultSize, p.Size())
}

func TestBoundedQueueBlocksSubmit(t *testing.T) {
	release := make(chan struct{})
	p := New(1, WithQueueLimit(1))

	require.NoError(t, p.Submit(func() { <-release }))
	// wait for the worker to take the first item off the queue
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.queue) == 0
	}, time.Second, time.Millisecond)
	require.NoError(t, p.Submit(func() {}))

	submitted := make(chan struct{})
	go func() {
		_ = p.Submit(func() {})
		close(submitted)
	}()
	select {
	case <-submitted:
		t.Fatal("submit should block while the queue is full")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	<-submitted
	p.Shutdown()
	assert.EqualValues(t, 3, p.Stats().Completed)
}
