package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"eventx-ticketing/internal/model"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.createEvent(t, 3, model.EventStatusActive, smallPlan())
		owner := newUser()
		ticket, err := env.booking.Book(ctx, owner, model.BookRequest{EventID: event.ID, SeatNumber: seat("A1-2")})
		require.NoError(t, err)

		receipt, err := env.gate.Validate(ctx, env.staff, ticket.ID)

		require.NoError(t, err)
		assert.Equal(t, ticket.TicketNumber, receipt.TicketNumber)
		assert.Equal(t, owner.UserID, receipt.HolderID)
		assert.Equal(t, event.Title, receipt.EventTitle)
		assert.Equal(t, "A1-2", *receipt.SeatNumber)
		assert.Equal(t, testNow, receipt.UsedAt)

		stored, err := env.tickets.FindByID(ctx, ticket.ID)
		require.NoError(t, err)
		assert.Equal(t, model.TicketStatusUsed, stored.Status)
		require.NotNil(t, stored.UsedBy)
		assert.Equal(t, env.staff.UserID, *stored.UsedBy)

		// 驗票不影響名額，座位仍被佔用
		assert.Equal(t, 1, env.bookedSeats(t, event.ID))
		_, err = env.booking.Book(ctx, newUser(), model.BookRequest{EventID: event.ID, SeatNumber: seat("A1-2")})
		assert.ErrorIs(t, err, apperrors.ErrSeatTaken)
	})

	t.Run("Success - Organizer Scans Own Event", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.createEvent(t, 1, model.EventStatusActive, nil)
		ticket, err := env.booking.Book(ctx, newUser(), model.BookRequest{EventID: event.ID})
		require.NoError(t, err)

		_, err = env.gate.Validate(ctx, env.organizer, ticket.ID)

		require.NoError(t, err)
	})

	t.Run("Failed - ErrTicketAlreadyUsed", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.createEvent(t, 1, model.EventStatusActive, nil)
		ticket, err := env.booking.Book(ctx, newUser(), model.BookRequest{EventID: event.ID})
		require.NoError(t, err)
		_, err = env.gate.Validate(ctx, env.staff, ticket.ID)
		require.NoError(t, err)

		_, err = env.gate.Validate(ctx, env.staff, ticket.ID)

		assert.ErrorIs(t, err, apperrors.ErrTicketAlreadyUsed)
	})

	t.Run("Failed - ErrTicketCancelled", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.createEvent(t, 1, model.EventStatusActive, nil)
		owner := newUser()
		ticket, err := env.booking.Book(ctx, owner, model.BookRequest{EventID: event.ID})
		require.NoError(t, err)
		_, err = env.booking.Cancel(ctx, owner, ticket.ID)
		require.NoError(t, err)

		_, err = env.gate.Validate(ctx, env.staff, ticket.ID)
		assert.ErrorIs(t, err, apperrors.ErrTicketCancelled)

		_, err = env.booking.Refund(ctx, env.admin, ticket.ID)
		require.NoError(t, err)
		_, err = env.gate.Validate(ctx, env.staff, ticket.ID)
		assert.ErrorIs(t, err, apperrors.ErrTicketCancelled)
	})

	t.Run("Failed - ErrForbidden", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.createEvent(t, 1, model.EventStatusActive, nil)
		owner := newUser()
		ticket, err := env.booking.Book(ctx, owner, model.BookRequest{EventID: event.ID})
		require.NoError(t, err)

		_, err = env.gate.Validate(ctx, owner, ticket.ID)

		assert.ErrorIs(t, err, apperrors.ErrForbidden)
	})

	t.Run("Failed - ErrTicketNotFound", func(t *testing.T) {
		env := newTestEnv(t)

		_, err := env.gate.Validate(ctx, env.staff, uuid.New())

		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})
}

// 多個入口同時掃描同一張票，只有一個成功
func TestConcurrentValidate_SingleEntry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	event := env.createEvent(t, 1, model.EventStatusActive, nil)
	ticket, err := env.booking.Book(ctx, newUser(), model.BookRequest{EventID: event.ID})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var success, used atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.gate.Validate(ctx, env.staff, ticket.ID)
			if err == nil {
				success.Add(1)
				return
			}
			if assert.ErrorIs(t, err, apperrors.ErrTicketAlreadyUsed) {
				used.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, success.Load())
	assert.EqualValues(t, 19, used.Load())
	assert.Equal(t, 1, env.bookedSeats(t, event.ID))
}

func TestScanRejection(t *testing.T) {
	assert.NoError(t, scanRejection(model.TicketStatusActive))
	assert.ErrorIs(t, scanRejection(model.TicketStatusUsed), apperrors.ErrTicketAlreadyUsed)
	assert.ErrorIs(t, scanRejection(model.TicketStatusRefunded), apperrors.ErrTicketCancelled)
	assert.ErrorIs(t, scanRejection(model.TicketStatus("lost")), apperrors.ErrInvalidState)
}
