package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mekaniku/internal/logger"
)

func TestDispatcherRunsTasksAndDrainsOnClose(t *testing.T) {
	d := New(Options{Workers: 2, QueueSize: 16, Timeout: time.Second}, logger.Discard())

	var ran atomic.Int32
	for i := 0; i < 10; i++ {
		assert.True(t, d.Dispatch("count", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		}))
	}
	d.Close()

	assert.Equal(t, int32(10), ran.Load())
	assert.Equal(t, int64(10), d.Stats().Succeeded)
}

func TestFailuresAndPanicsAreContained(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 4, Timeout: time.Second}, logger.Discard())

	d.Dispatch("fails", func(ctx context.Context) error { return errors.New("chat store down") })
	d.Dispatch("panics", func(ctx context.Context) error { panic("boom") })
	d.Dispatch("ok", func(ctx context.Context) error { return nil })
	d.Close()

	stats := d.Stats()
	assert.Equal(t, int64(2), stats.Failed)
	assert.Equal(t, int64(1), stats.Succeeded)
}

func TestTaskTimeout(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1, Timeout: 20 * time.Millisecond}, logger.Discard())

	var gotErr error
	var mu sync.Mutex
	d.Dispatch("slow", func(ctx context.Context) error {
		<-ctx.Done()
		mu.Lock()
		gotErr = ctx.Err()
		mu.Unlock()
		return ctx.Err()
	})
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, gotErr, context.DeadlineExceeded)
	assert.Equal(t, int64(1), d.Stats().Failed)
}

func TestFullQueueDrops(t *testing.T) {
	d := New(Options{Workers: 1, QueueSize: 1, Timeout: time.Second}, logger.Discard())

	release := make(chan struct{})
	started := make(chan struct{})
	d.Dispatch("blocker", func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	})
	<-started

	assert.True(t, d.Dispatch("queued", func(ctx context.Context) error { return nil }))
	assert.False(t, d.Dispatch("dropped", func(ctx context.Context) error { return nil }))

	close(release)
	d.Close()
	assert.Equal(t, int64(1), d.Stats().Dropped)
	assert.False(t, d.Dispatch("after close", func(ctx context.Context) error { return nil }))
}

func TestInlineSwallowsErrors(t *testing.T) {
	in := Inline{Timeout: time.Second, Log: logger.Discard()}
	ran := false
	assert.True(t, in.Dispatch("x", func(ctx context.Context) error {
		ran = true
		return errors.New("ignored")
	}))
	assert.True(t, ran)
}
