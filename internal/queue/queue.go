package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"timeclock.agent/internal/core/model"
)

// SendFunc attempts delivery of one payload and reports success. It must
// bound its own timeout; the queue never cancels it.
type SendFunc func(ctx context.Context, kind model.PayloadKind, payload json.RawMessage) bool

// Queue is the durable at-least-once delivery queue. Entries enqueued
// before a crash are retried after restart with their attempt count
// preserved. The retry loop is the single delivery authority: nothing else
// drains entries, so no entry ever has two in-flight delivery attempts.
type Queue struct {
	db          *sql.DB
	maxAttempts int
	log         zerolog.Logger

	// mu serializes every read-modify-write against the storage; the
	// foreground enqueue path and the retry loop share nothing else.
	mu sync.Mutex
}

func New(db *sql.DB, maxAttempts int, log zerolog.Logger) *Queue {
	return &Queue{db: db, maxAttempts: maxAttempts, log: log}
}

// Enqueue stores a payload for later delivery. It is a local durable write
// and never touches the network.
func (q *Queue) Enqueue(ctx context.Context, kind model.PayloadKind, payload json.RawMessage) (int64, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO pending_transmissions (kind, payload, attempts, status, enqueued_at)
		 VALUES (?, ?, 0, ?, ?)`,
		string(kind), string(payload), string(model.StatusSendPending), time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("enqueueing transmission: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading transmission id: %w", err)
	}
	q.log.Info().Int64("transmission_id", id).Str("kind", string(kind)).Msg("Payload queued for retry")
	return id, nil
}

// DrainOnce lists all pending entries and attempts each one exactly once.
// Delivered entries are removed; failures bump the attempt count; entries
// past the ceiling move to the expired store so nothing is silently
// dropped. The send itself runs outside the storage lock.
func (q *Queue) DrainOnce(ctx context.Context, send SendFunc) error {
	pending, err := q.listPending(ctx)
	if err != nil {
		return err
	}

	for _, entry := range pending {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if send(ctx, entry.Kind, entry.Payload) {
			if err := q.markDelivered(ctx, entry.ID); err != nil {
				return err
			}
			q.log.Info().Int64("transmission_id", entry.ID).Msg("Queued payload delivered")
			continue
		}

		if err := q.recordFailure(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// RunRetryLoop drains the queue on a fixed interval until the context is
// canceled. It runs independently of the scheduling cycle so a stalled
// device session never blocks delivery retries.
func (q *Queue) RunRetryLoop(ctx context.Context, interval time.Duration, send SendFunc) {
	q.log.Info().Dur("interval", interval).Msg("Retry loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			q.log.Info().Msg("Retry loop shutting down")
			return
		case <-ticker.C:
			if err := q.DrainOnce(ctx, send); err != nil && ctx.Err() == nil {
				q.log.Error().Err(err).Msg("Error draining pending transmissions")
			}
		}
	}
}

// PendingCount reports how many entries still await delivery.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	return q.count(ctx, "pending_transmissions")
}

// ExpiredCount reports how many entries exhausted their attempts.
func (q *Queue) ExpiredCount(ctx context.Context) (int, error) {
	return q.count(ctx, "expired_transmissions")
}

func (q *Queue) count(ctx context.Context, table string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var n int
	err := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting %s: %w", table, err)
	}
	return n, nil
}

func (q *Queue) listPending(ctx context.Context) ([]model.PendingTransmission, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	rows, err := q.db.QueryContext(ctx,
		`SELECT id, kind, payload, attempts, enqueued_at
		 FROM pending_transmissions
		 WHERE status = ?
		 ORDER BY id`,
		string(model.StatusSendPending))
	if err != nil {
		return nil, fmt.Errorf("listing pending transmissions: %w", err)
	}
	defer rows.Close()

	var pending []model.PendingTransmission
	for rows.Next() {
		var (
			entry   model.PendingTransmission
			kind    string
			payload string
		)
		if err := rows.Scan(&entry.ID, &kind, &payload, &entry.Attempts, &entry.EnqueuedAt); err != nil {
			return nil, fmt.Errorf("scanning pending transmission: %w", err)
		}
		entry.Kind = model.PayloadKind(kind)
		entry.Payload = json.RawMessage(payload)
		entry.Status = model.StatusSendPending
		pending = append(pending, entry)
	}
	return pending, rows.Err()
}

func (q *Queue) markDelivered(ctx context.Context, id int64) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	_, err := q.db.ExecContext(ctx, `DELETE FROM pending_transmissions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("removing delivered transmission %d: %w", id, err)
	}
	return nil
}

// recordFailure bumps the attempt count, or moves the entry to the expired
// store once the count passes the ceiling.
func (q *Queue) recordFailure(ctx context.Context, entry model.PendingTransmission) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	attempts := entry.Attempts + 1
	if attempts <= q.maxAttempts {
		_, err := q.db.ExecContext(ctx,
			`UPDATE pending_transmissions SET attempts = ? WHERE id = ?`,
			attempts, entry.ID)
		if err != nil {
			return fmt.Errorf("updating attempts for transmission %d: %w", entry.ID, err)
		}
		q.log.Warn().Int64("transmission_id", entry.ID).Int("attempts", attempts).Msg("Delivery failed, will retry")
		return nil
	}

	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting expiry transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expired_transmissions (id, kind, payload, attempts, enqueued_at, expired_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, string(entry.Kind), string(entry.Payload), attempts, entry.EnqueuedAt, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("archiving expired transmission %d: %w", entry.ID, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM pending_transmissions WHERE id = ?`, entry.ID); err != nil {
		return fmt.Errorf("removing expired transmission %d: %w", entry.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing expiry for transmission %d: %w", entry.ID, err)
	}

	q.log.Error().Int64("transmission_id", entry.ID).Int("attempts", attempts).Msg("Delivery attempts exhausted, payload expired")
	return nil
}
