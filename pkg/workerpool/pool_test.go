package workerpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_RunsTasks(t *testing.T) {
	p := New(Config{Workers: 4, QueueSize: 16}, nil)
	p.Start()

	var wg sync.WaitGroup
	var count int64
	for i := 0; i < 10; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(&Task{Name: "inc", Run: func(ctx context.Context) {
			defer wg.Done()
			atomic.AddInt64(&count, 1)
		}}))
	}
	wg.Wait()
	p.Stop()

	assert.Equal(t, int64(10), atomic.LoadInt64(&count))
	assert.Equal(t, int64(10), p.Stats().TasksCompleted)
}

func TestPool_QueueFull(t *testing.T) {
	p := New(Config{Workers: 1, QueueSize: 1}, nil)
	p.Start()
	defer p.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(&Task{Name: "block", Run: func(ctx context.Context) {
		close(started)
		<-block
	}}))
	<-started

	require.NoError(t, p.Submit(&Task{Name: "queued", Run: func(ctx context.Context) {}}))
	err := p.Submit(&Task{Name: "rejected", Run: func(ctx context.Context) {}})
	assert.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, int64(1), p.Stats().TasksRejected)

	close(block)
}

func TestPool_PanicIsContained(t *testing.T) {
	p := New(Config{Workers: 1, QueueSize: 4}, nil)
	p.Start()

	done := make(chan struct{})
	require.NoError(t, p.Submit(&Task{Name: "boom", Run: func(ctx context.Context) { panic("boom") }}))
	require.NoError(t, p.Submit(&Task{Name: "after", Run: func(ctx context.Context) { close(done) }}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not survive panic")
	}
	p.Stop()

	assert.Equal(t, int64(1), p.Stats().TasksPanicked)
}

func TestPool_SubmitAfterStop(t *testing.T) {
	p := New(DefaultConfig(), nil)
	p.Start()
	p.Stop()

	err := p.Submit(&Task{Name: "late", Run: func(ctx context.Context) {}})
	assert.ErrorIs(t, err, ErrStopped)
}
