package queue

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timeclock.agent/internal/core/model"
)

func openTestQueue(t *testing.T, maxAttempts int) (*Queue, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.db")
	db, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(db, maxAttempts, zerolog.Nop()), path
}

func alwaysFail(context.Context, model.PayloadKind, json.RawMessage) bool { return false }

func alwaysSucceed(context.Context, model.PayloadKind, json.RawMessage) bool { return true }

func TestEnqueueAndDrainSuccess(t *testing.T) {
	ctx := context.Background()
	q, _ := openTestQueue(t, 3)

	id, err := q.Enqueue(ctx, model.PayloadAttendance, json.RawMessage(`{"date":"2026-03-09"}`))
	require.NoError(t, err)
	assert.Positive(t, id)

	pending, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)

	require.NoError(t, q.DrainOnce(ctx, alwaysSucceed))

	pending, err = q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestDrainFailureIncrementsAttempts(t *testing.T) {
	ctx := context.Background()
	q, _ := openTestQueue(t, 5)

	_, err := q.Enqueue(ctx, model.PayloadAttendance, json.RawMessage(`{}`))
	require.NoError(t, err)

	require.NoError(t, q.DrainOnce(ctx, alwaysFail))
	require.NoError(t, q.DrainOnce(ctx, alwaysFail))

	entries, err := q.listPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 2, entries[0].Attempts)
	assert.Equal(t, model.StatusSendPending, entries[0].Status)
}

func TestFailuresPastCeilingExpire(t *testing.T) {
	ctx := context.Background()
	q, _ := openTestQueue(t, 2)

	_, err := q.Enqueue(ctx, model.PayloadDevice, json.RawMessage(`{}`))
	require.NoError(t, err)

	// Two failures reach the ceiling, the third crosses it.
	for i := 0; i < 3; i++ {
		require.NoError(t, q.DrainOnce(ctx, alwaysFail))
	}

	pending, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending, "expired entries must leave the pending store")

	expired, err := q.ExpiredCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, expired, "expired entries are archived, never dropped")
}

func TestFailThreeTimesThenSucceed(t *testing.T) {
	ctx := context.Background()
	q, _ := openTestQueue(t, 12)

	_, err := q.Enqueue(ctx, model.PayloadAttendance, json.RawMessage(`{"users":{}}`))
	require.NoError(t, err)

	calls := 0
	flaky := func(context.Context, model.PayloadKind, json.RawMessage) bool {
		calls++
		return calls > 3
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, q.DrainOnce(ctx, flaky))
		entries, err := q.listPending(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, i+1, entries[0].Attempts)
	}

	require.NoError(t, q.DrainOnce(ctx, flaky))
	pending, err := q.PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	expired, err := q.ExpiredCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, expired)
}

func TestQueueSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "queue.db")

	db, err := Open(path)
	require.NoError(t, err)
	q := New(db, 5, zerolog.Nop())

	_, err = q.Enqueue(ctx, model.PayloadAttendance, json.RawMessage(`{"date":"2026-03-09"}`))
	require.NoError(t, err)
	require.NoError(t, q.DrainOnce(ctx, alwaysFail))
	require.NoError(t, db.Close())

	// Simulated restart: the entry is still pending with its attempt count.
	db, err = Open(path)
	require.NoError(t, err)
	defer db.Close()
	reopened := New(db, 5, zerolog.Nop())

	entries, err := reopened.listPending(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)
	assert.Equal(t, model.PayloadAttendance, entries[0].Kind)
	assert.JSONEq(t, `{"date":"2026-03-09"}`, string(entries[0].Payload))
}

func TestDrainPreservesEnqueueOrder(t *testing.T) {
	ctx := context.Background()
	q, _ := openTestQueue(t, 5)

	_, err := q.Enqueue(ctx, model.PayloadDevice, json.RawMessage(`{"n":1}`))
	require.NoError(t, err)
	_, err = q.Enqueue(ctx, model.PayloadAttendance, json.RawMessage(`{"n":2}`))
	require.NoError(t, err)

	var order []model.PayloadKind
	recordOrder := func(_ context.Context, kind model.PayloadKind, _ json.RawMessage) bool {
		order = append(order, kind)
		return true
	}
	require.NoError(t, q.DrainOnce(ctx, recordOrder))
	assert.Equal(t, []model.PayloadKind{model.PayloadDevice, model.PayloadAttendance}, order)
}
