// Package repositorytest holds behaviour shared by every store implementation.
// Each store's tests call Run with a factory returning fresh repositories.
package repositorytest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/repository"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Factory func(t *testing.T) (repository.EventRepository, repository.TicketRepository)

var now = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func NewEvent(capacity int, status model.EventStatus) *model.Event {
	return &model.Event{
		ID:          uuid.New(),
		OrganizerID: uuid.New(),
		Title:       "Spring Concert",
		Venue:       "Main Hall",
		StartsAt:    now.Add(72 * time.Hour),
		Price:       25,
		Capacity:    capacity,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

type runOptions struct {
	skipCancel bool
}

type Option func(*runOptions)

// WithoutTransactions skips the atomic cancel cases for a backend that
// cannot run multi-document transactions, such as a standalone mongod.
func WithoutTransactions() Option {
	return func(o *runOptions) { o.skipCancel = true }
}

func Run(t *testing.T, newRepos Factory, opts ...Option) {
	ctx := context.Background()
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}

	t.Run("Event create and find", func(t *testing.T) {
		events, _ := newRepos(t)
		event := NewEvent(10, model.EventStatusDraft)
		event.SeatingPlan = &model.SeatingPlan{Sections: []model.SeatSection{
			{Name: "A", Rows: []model.SeatRow{{Name: "1", Seats: []string{"A1", "A2"}}}},
		}}
		require.NoError(t, events.Create(ctx, event))

		found, err := events.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, event.Title, found.Title)
		assert.Equal(t, 10, found.Capacity)
		assert.Equal(t, 25.0, found.Price)
		assert.Equal(t, model.EventStatusDraft, found.Status)
		assert.True(t, found.SeatingPlan.HasSeat("A2"))

		_, err = events.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})

	t.Run("Reserve stops at capacity", func(t *testing.T) {
		events, _ := newRepos(t)
		event := NewEvent(2, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))

		for i := 1; i <= 2; i++ {
			updated, err := events.ReserveSeat(ctx, event.ID, now)
			require.NoError(t, err)
			assert.Equal(t, i, updated.BookedSeats)
		}

		_, err := events.ReserveSeat(ctx, event.ID, now)
		assert.ErrorIs(t, err, apperrors.ErrEventFull)

		_, err = events.ReserveSeat(ctx, uuid.New(), now)
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})

	t.Run("Reserve under contention", func(t *testing.T) {
		events, _ := newRepos(t)
		event := NewEvent(10, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))

		var ok, full atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := events.ReserveSeat(ctx, event.ID, now)
				switch {
				case err == nil:
					ok.Add(1)
				case assert.ErrorIs(t, err, apperrors.ErrEventFull):
					full.Add(1)
				}
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 10, ok.Load())
		assert.EqualValues(t, 40, full.Load())
		found, err := events.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 10, found.BookedSeats)
	})

	t.Run("Reserve requires a bookable status", func(t *testing.T) {
		events, _ := newRepos(t)
		for _, status := range []model.EventStatus{model.EventStatusDraft, model.EventStatusClosed, model.EventStatusCancelled} {
			event := NewEvent(5, status)
			require.NoError(t, events.Create(ctx, event))

			_, err := events.ReserveSeat(ctx, event.ID, now)
			assert.ErrorIs(t, err, apperrors.ErrEventNotBookable, string(status))

			found, err := events.FindByID(ctx, event.ID)
			require.NoError(t, err)
			assert.Zero(t, found.BookedSeats)
		}

		upcoming := NewEvent(1, model.EventStatusUpcoming)
		require.NoError(t, events.Create(ctx, upcoming))
		_, err := events.ReserveSeat(ctx, upcoming.ID, now)
		require.NoError(t, err)
		_, err = events.ReserveSeat(ctx, upcoming.ID, now)
		assert.ErrorIs(t, err, apperrors.ErrEventFull)
	})

	t.Run("Release floors at zero", func(t *testing.T) {
		events, _ := newRepos(t)
		event := NewEvent(3, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))

		_, err := events.ReserveSeat(ctx, event.ID, now)
		require.NoError(t, err)

		updated, err := events.ReleaseSeat(ctx, event.ID, now)
		require.NoError(t, err)
		assert.Zero(t, updated.BookedSeats)

		updated, err = events.ReleaseSeat(ctx, event.ID, now)
		require.NoError(t, err)
		assert.Zero(t, updated.BookedSeats)
	})

	t.Run("Resize guard", func(t *testing.T) {
		events, _ := newRepos(t)
		event := NewEvent(5, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))
		for i := 0; i < 3; i++ {
			_, err := events.ReserveSeat(ctx, event.ID, now)
			require.NoError(t, err)
		}

		_, err := events.Resize(ctx, event.ID, 2, now)
		assert.ErrorIs(t, err, apperrors.ErrBelowSoldCount)

		updated, err := events.Resize(ctx, event.ID, 3, now)
		require.NoError(t, err)
		assert.Equal(t, 3, updated.Capacity)
		assert.Equal(t, 3, updated.BookedSeats)

		_, err = events.Resize(ctx, uuid.New(), 3, now)
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)

		empty := NewEvent(5, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, empty))
		paused, err := events.Resize(ctx, empty.ID, 0, now)
		require.NoError(t, err)
		assert.Zero(t, paused.Capacity)
		_, err = events.ReserveSeat(ctx, empty.ID, now)
		assert.ErrorIs(t, err, apperrors.ErrEventFull)
	})

	t.Run("UpdateStatus compares current status", func(t *testing.T) {
		events, _ := newRepos(t)
		event := NewEvent(5, model.EventStatusDraft)
		require.NoError(t, events.Create(ctx, event))

		updated, err := events.UpdateStatus(ctx, event.ID, model.EventStatusDraft, model.EventStatusUpcoming, now)
		require.NoError(t, err)
		assert.Equal(t, model.EventStatusUpcoming, updated.Status)

		_, err = events.UpdateStatus(ctx, event.ID, model.EventStatusDraft, model.EventStatusCancelled, now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
	})

	t.Run("UpdateDetails", func(t *testing.T) {
		events, _ := newRepos(t)
		event := NewEvent(5, model.EventStatusDraft)
		require.NoError(t, events.Create(ctx, event))

		title, price := "Summer Concert", 30.0
		updated, err := events.UpdateDetails(ctx, event.ID, model.UpdateEventParams{Title: &title, Price: &price}, now)
		require.NoError(t, err)
		assert.Equal(t, "Summer Concert", updated.Title)
		assert.Equal(t, 30.0, updated.Price)
		assert.Equal(t, "Main Hall", updated.Venue)

		_, err = events.UpdateDetails(ctx, event.ID, model.UpdateEventParams{}, now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})

	t.Run("Delete guarded by booked seats", func(t *testing.T) {
		events, _ := newRepos(t)
		event := NewEvent(5, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))
		_, err := events.ReserveSeat(ctx, event.ID, now)
		require.NoError(t, err)

		assert.ErrorIs(t, events.Delete(ctx, event.ID), apperrors.ErrEventHasActiveTickets)

		_, err = events.ReleaseSeat(ctx, event.ID, now)
		require.NoError(t, err)
		require.NoError(t, events.Delete(ctx, event.ID))

		_, err = events.FindByID(ctx, event.ID)
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
		assert.ErrorIs(t, events.Delete(ctx, event.ID), apperrors.ErrEventNotFound)
	})

	t.Run("List filters and paginates", func(t *testing.T) {
		events, _ := newRepos(t)
		organizer := uuid.New()
		for i := 0; i < 3; i++ {
			e := NewEvent(5, model.EventStatusUpcoming)
			e.OrganizerID = organizer
			e.StartsAt = now.Add(time.Duration(i) * time.Hour)
			require.NoError(t, events.Create(ctx, e))
		}
		require.NoError(t, events.Create(ctx, NewEvent(5, model.EventStatusDraft)))

		status := model.EventStatusUpcoming
		page, err := events.List(ctx, model.EventFilter{Status: &status, OrganizerID: &organizer, Page: 1, Limit: 2})
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.True(t, page[0].StartsAt.Before(page[1].StartsAt))

		page, err = events.List(ctx, model.EventFilter{Status: &status, OrganizerID: &organizer, Page: 2, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, page, 1)
	})

	t.Run("List hides drafts on request", func(t *testing.T) {
		events, _ := newRepos(t)
		organizer := uuid.New()
		for _, status := range []model.EventStatus{model.EventStatusDraft, model.EventStatusUpcoming} {
			e := NewEvent(5, status)
			e.OrganizerID = organizer
			require.NoError(t, events.Create(ctx, e))
		}

		all, err := events.List(ctx, model.EventFilter{OrganizerID: &organizer})
		require.NoError(t, err)
		assert.Len(t, all, 2)

		public, err := events.List(ctx, model.EventFilter{OrganizerID: &organizer, HideDrafts: true})
		require.NoError(t, err)
		require.Len(t, public, 1)
		assert.Equal(t, model.EventStatusUpcoming, public[0].Status)

		draft := model.EventStatusDraft
		none, err := events.List(ctx, model.EventFilter{Status: &draft, OrganizerID: &organizer, HideDrafts: true})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("Ticket seat uniqueness", func(t *testing.T) {
		events, tickets := newRepos(t)
		event := NewEvent(5, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))

		seat := "A1"
		first := model.NewTicket(event, uuid.New(), &seat, now)
		require.NoError(t, tickets.Create(ctx, first))

		second := model.NewTicket(event, uuid.New(), &seat, now)
		assert.ErrorIs(t, tickets.Create(ctx, second), apperrors.ErrSeatTaken)

		held, err := tickets.SeatHeld(ctx, event.ID, seat)
		require.NoError(t, err)
		assert.True(t, held)

		_, err = tickets.Transition(ctx, first.ID, model.TransitionParams{
			From: model.TicketStatusActive, To: model.TicketStatusCancelled, At: now,
		})
		require.NoError(t, err)

		held, err = tickets.SeatHeld(ctx, event.ID, seat)
		require.NoError(t, err)
		assert.False(t, held)

		third := model.NewTicket(event, uuid.New(), &seat, now)
		require.NoError(t, tickets.Create(ctx, third))

		seats, err := tickets.HeldSeats(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"A1"}, seats)
	})

	t.Run("Ticket number is unique", func(t *testing.T) {
		events, tickets := newRepos(t)
		event := NewEvent(5, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))

		first := model.NewTicket(event, uuid.New(), nil, now)
		require.NoError(t, tickets.Create(ctx, first))

		dup := model.NewTicket(event, uuid.New(), nil, now)
		dup.TicketNumber = first.TicketNumber
		assert.ErrorIs(t, tickets.Create(ctx, dup), apperrors.ErrTicketNumberTaken)

		_, err := tickets.FindByID(ctx, dup.ID)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})

	t.Run("Cancel releases the seat with the status change", func(t *testing.T) {
		if o.skipCancel {
			t.Skip("backend runs without transactions")
		}
		events, tickets := newRepos(t)
		event := NewEvent(2, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))

		seat := "A1"
		ticket := model.NewTicket(event, uuid.New(), &seat, now)
		_, err := events.ReserveSeat(ctx, event.ID, now)
		require.NoError(t, err)
		require.NoError(t, tickets.Create(ctx, ticket))

		cancelled, err := tickets.Cancel(ctx, ticket.ID, now)
		require.NoError(t, err)
		assert.Equal(t, model.TicketStatusCancelled, cancelled.Status)
		require.NotNil(t, cancelled.CancelledAt)
		assert.WithinDuration(t, now, *cancelled.CancelledAt, time.Millisecond)

		found, err := events.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Zero(t, found.BookedSeats)
		held, err := tickets.SeatHeld(ctx, event.ID, seat)
		require.NoError(t, err)
		assert.False(t, held)

		_, err = tickets.Cancel(ctx, ticket.ID, now)
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
		found, err = events.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Zero(t, found.BookedSeats)

		_, err = tickets.Cancel(ctx, uuid.New(), now)
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)
	})

	t.Run("Cancel rejects a used ticket", func(t *testing.T) {
		if o.skipCancel {
			t.Skip("backend runs without transactions")
		}
		events, tickets := newRepos(t)
		event := NewEvent(2, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))
		_, err := events.ReserveSeat(ctx, event.ID, now)
		require.NoError(t, err)
		ticket := model.NewTicket(event, uuid.New(), nil, now)
		require.NoError(t, tickets.Create(ctx, ticket))
		_, err = tickets.Transition(ctx, ticket.ID, model.TransitionParams{
			From: model.TicketStatusActive, To: model.TicketStatusUsed, At: now,
		})
		require.NoError(t, err)

		_, err = tickets.Cancel(ctx, ticket.ID, now)

		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
		found, err := events.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, found.BookedSeats)
	})

	t.Run("General admission tickets share no seat", func(t *testing.T) {
		events, tickets := newRepos(t)
		event := NewEvent(5, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))

		require.NoError(t, tickets.Create(ctx, model.NewTicket(event, uuid.New(), nil, now)))
		require.NoError(t, tickets.Create(ctx, model.NewTicket(event, uuid.New(), nil, now)))

		list, err := tickets.ListByEvent(ctx, event.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("Ticket transition is compare-and-set", func(t *testing.T) {
		events, tickets := newRepos(t)
		event := NewEvent(5, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))

		owner := uuid.New()
		ticket := model.NewTicket(event, owner, nil, now)
		require.NoError(t, tickets.Create(ctx, ticket))

		staff := uuid.New()
		used, err := tickets.Transition(ctx, ticket.ID, model.TransitionParams{
			From: model.TicketStatusActive, To: model.TicketStatusUsed, At: now, By: &staff,
		})
		require.NoError(t, err)
		assert.Equal(t, model.TicketStatusUsed, used.Status)
		require.NotNil(t, used.UsedAt)
		assert.WithinDuration(t, now, *used.UsedAt, time.Millisecond)
		require.NotNil(t, used.UsedBy)
		assert.Equal(t, staff, *used.UsedBy)

		_, err = tickets.Transition(ctx, ticket.ID, model.TransitionParams{
			From: model.TicketStatusActive, To: model.TicketStatusUsed, At: now,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)

		_, err = tickets.Transition(ctx, uuid.New(), model.TransitionParams{
			From: model.TicketStatusActive, To: model.TicketStatusUsed, At: now,
		})
		assert.ErrorIs(t, err, apperrors.ErrTicketNotFound)

		mine, err := tickets.ListByUser(ctx, owner)
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, model.TicketStatusUsed, mine[0].Status)
	})

	t.Run("Concurrent transitions have one winner", func(t *testing.T) {
		events, tickets := newRepos(t)
		event := NewEvent(5, model.EventStatusActive)
		require.NoError(t, events.Create(ctx, event))
		ticket := model.NewTicket(event, uuid.New(), nil, now)
		require.NoError(t, tickets.Create(ctx, ticket))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := tickets.Transition(ctx, ticket.ID, model.TransitionParams{
					From: model.TicketStatusActive, To: model.TicketStatusUsed, At: now,
				})
				if err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, wins.Load())
	})

	t.Run("Disallowed transition is rejected before storage", func(t *testing.T) {
		_, tickets := newRepos(t)
		_, err := tickets.Transition(ctx, uuid.New(), model.TransitionParams{
			From: model.TicketStatusUsed, To: model.TicketStatusActive, At: now,
		})
		assert.ErrorIs(t, err, apperrors.ErrInvalidState)
	})
}
