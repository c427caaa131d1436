package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryQueuePushPop(t *testing.T) {
	q := NewInMemoryQueue()

	require.NoError(t, q.Push(&Task{ID: "1", URL: "https://example.com/a"}))
	require.NoError(t, q.Push(&Task{ID: "2", URL: "https://example.com/b"}))
	assert.Equal(t, 2, q.Size())

	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", task.ID)

	task, err = q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2", task.ID)
	assert.Equal(t, 0, q.Size())
}

func TestInMemoryQueuePriority(t *testing.T) {
	q := NewInMemoryQueue()

	require.NoError(t, q.Push(&Task{ID: "low", Priority: 1}))
	require.NoError(t, q.Push(&Task{ID: "high", Priority: 10}))
	require.NoError(t, q.Push(&Task{ID: "mid", Priority: 5}))

	var order []string
	for i := 0; i < 3; i++ {
		task, err := q.Pop(context.Background())
		require.NoError(t, err)
		order = append(order, task.ID)
	}

	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestInMemoryQueuePopBlocksUntilPush(t *testing.T) {
	q := NewInMemoryQueue()

	result := make(chan *Task)
	go func() {
		task, err := q.Pop(context.Background())
		require.NoError(t, err)
		result <- task
	}()

	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Push(&Task{ID: "late"}))

	select {
	case task := <-result:
		assert.Equal(t, "late", task.ID)
	case <-time.After(time.Second):
		t.Fatal("pop did not return after push")
	}
}

func TestInMemoryQueuePopContextCancel(t *testing.T) {
	q := NewInMemoryQueue()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInMemoryQueueClosed(t *testing.T) {
	q := NewInMemoryQueue()
	require.NoError(t, q.Push(&Task{ID: "1"}))
	require.NoError(t, q.Close())

	assert.ErrorIs(t, q.Push(&Task{ID: "2"}), ErrQueueClosed)

	// Drain: already queued tasks still come out.
	task, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1", task.ID)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrQueueClosed)
}

func TestInMemoryQueueUsableAfterCancelledPop(t *testing.T) {
	q := NewInMemoryQueue()

	// A cancelled waiter must not wedge the queue for later callers.
	for i := 0; i < 25; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		popErr := make(chan error)
		go func() {
			_, err := q.Pop(ctx)
			popErr <- err
		}()

		time.Sleep(time.Millisecond)
		cancel()
		require.ErrorIs(t, <-popErr, context.Canceled)

		require.NoError(t, q.Push(&Task{ID: "after-cancel"}))

		task, err := q.Pop(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "after-cancel", task.ID)
	}
}

func TestInMemoryQueueCloseIdempotent(t *testing.T) {
	q := NewInMemoryQueue()
	require.NoError(t, q.Close())
	require.NoError(t, q.Close())
}

func TestTaskIsPDF(t *testing.T) {
	assert.True(t, (&Task{PDFPath: "/tmp/catalog.pdf"}).IsPDF())
	assert.False(t, (&Task{URL: "https://example.com"}).IsPDF())
}
