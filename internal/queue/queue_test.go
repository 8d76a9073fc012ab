package queue_test

import (
	"context"
	"testing"
	"time"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/queue"
	"eventx-ticketing/internal/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicketEvent(typ model.TicketEventType) *model.TicketEvent {
	seat := "A1"
	return &model.TicketEvent{
		Type: typ,
		Ticket: model.Ticket{
			ID:           uuid.New(),
			TicketNumber: "EVT-20260501-12345",
			EventID:      uuid.New(),
			UserID:       uuid.New(),
			SeatNumber:   &seat,
			Price:        25,
			Status:       model.TicketStatusActive,
		},
		OccurredAt: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func receive(t *testing.T, ch <-chan queue.Delivery, timeout time.Duration) queue.Delivery {
	t.Helper()
	select {
	case d, ok := <-ch:
		require.True(t, ok, "delivery channel closed")
		return d
	case <-time.After(timeout):
		t.Fatal("timeout waiting for delivery")
	}
	return queue.Delivery{}
}

func TestMemoryQueue(t *testing.T) {
	t.Run("Publish and subscribe", func(t *testing.T) {
		q := queue.NewMemoryQueue(4)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		event := newTicketEvent(model.TicketEventBooked)
		require.NoError(t, q.Publish(ctx, event))

		ch, err := q.Subscribe(ctx)
		require.NoError(t, err)

		d := receive(t, ch, time.Second)
		assert.Equal(t, event.Ticket.ID, d.Event.Ticket.ID)
		d.Ack()
	})

	t.Run("Nack requeue redelivers", func(t *testing.T) {
		q := queue.NewMemoryQueue(4)
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		event := newTicketEvent(model.TicketEventUsed)
		require.NoError(t, q.Publish(ctx, event))
		ch, err := q.Subscribe(ctx)
		require.NoError(t, err)

		receive(t, ch, time.Second).Nack(true)
		again := receive(t, ch, time.Second)
		assert.Equal(t, event.Ticket.ID, again.Event.Ticket.ID)
	})

	t.Run("Failed - publish on full buffer honours context", func(t *testing.T) {
		q := queue.NewMemoryQueue(1)
		require.NoError(t, q.Publish(context.Background(), newTicketEvent(model.TicketEventBooked)))

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()
		assert.ErrorIs(t, q.Publish(ctx, newTicketEvent(model.TicketEventBooked)), context.DeadlineExceeded)
	})

	t.Run("Subscription closes with context", func(t *testing.T) {
		q := queue.NewMemoryQueue(1)
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := q.Subscribe(ctx)
		require.NoError(t, err)
		cancel()

		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("subscription not closed")
		}
	})
}

func TestRedisStreamQueue(t *testing.T) {
	rdb := testutil.Redis(t)
	cfg := queue.RedisStreamConfig{
		ClaimMinIdleTime:   200 * time.Millisecond,
		MaxRetryCount:      2,
		ReadGroupBlockTime: 100 * time.Millisecond,
	}

	t.Run("Delivers published event", func(t *testing.T) {
		require.NoError(t, rdb.Del(context.Background(), queue.StreamKey).Err())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		q, err := queue.NewRedisStreamQueue(ctx, rdb, "deliver-test", cfg)
		require.NoError(t, err)

		event := newTicketEvent(model.TicketEventBooked)
		require.NoError(t, q.Publish(ctx, event))

		ch, err := q.Subscribe(ctx)
		require.NoError(t, err)

		d := receive(t, ch, 3*time.Second)
		assert.Equal(t, model.TicketEventBooked, d.Event.Type)
		assert.Equal(t, event.Ticket.ID, d.Event.Ticket.ID)
		assert.Equal(t, "A1", d.Event.Ticket.Seat())
		d.Ack()

		pending, err := rdb.XPending(ctx, queue.StreamKey, queue.ConsumerGroupName).Result()
		require.NoError(t, err)
		assert.Zero(t, pending.Count)
	})

	t.Run("Nack requeue is reclaimed", func(t *testing.T) {
		require.NoError(t, rdb.Del(context.Background(), queue.StreamKey).Err())
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		q, err := queue.NewRedisStreamQueue(ctx, rdb, "retry-test", cfg)
		require.NoError(t, err)

		event := newTicketEvent(model.TicketEventCancelled)
		require.NoError(t, q.Publish(ctx, event))

		ch, err := q.Subscribe(ctx)
		require.NoError(t, err)

		receive(t, ch, 3*time.Second).Nack(true)
		again := receive(t, ch, 3*time.Second)
		assert.Equal(t, event.Ticket.ID, again.Event.Ticket.ID)
		again.Ack()
	})
}
