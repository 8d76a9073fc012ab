package worker_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/queue"
	"eventx-ticketing/internal/worker"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, event *model.TicketEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

func TestTicketEventWorker_Run(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		q := queue.NewMemoryQueue(10)
		event := &model.TicketEvent{Type: model.TicketEventBooked, Ticket: model.Ticket{ID: uuid.New()}}

		done := make(chan struct{})
		pub := &mockPublisher{}
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e *model.TicketEvent) bool {
			return e.Ticket.ID == event.Ticket.ID
		})).Return(nil).Once().Run(func(mock.Arguments) { close(done) })

		w := worker.NewTicketEventWorker(q, pub)
		errCh := make(chan error, 1)
		go func() { errCh <- w.Run(ctx) }()

		require.NoError(t, q.Publish(ctx, event))

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not publish the event in time")
		}
		cancel()
		assert.NoError(t, <-errCh)
		pub.AssertExpectations(t)
	})

	t.Run("Failed - publish error is retried", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		q := queue.NewMemoryQueue(10)
		event := &model.TicketEvent{Type: model.TicketEventCancelled, Ticket: model.Ticket{ID: uuid.New()}}

		done := make(chan struct{})
		pub := &mockPublisher{}
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()
		pub.On("Publish", mock.Anything, mock.Anything).Return(nil).Once().Run(func(mock.Arguments) { close(done) })

		w := worker.NewTicketEventWorker(q, pub)
		go func() { _ = w.Run(ctx) }()

		require.NoError(t, q.Publish(ctx, event))

		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("worker did not retry the event")
		}
		pub.AssertNumberOfCalls(t, "Publish", 2)
	})
}
