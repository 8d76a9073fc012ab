package memory_test

import (
	"context"
	"testing"

	"eventx-ticketing/internal/model"
	"eventx-ticketing/internal/repository"
	"eventx-ticketing/internal/repository/memory"
	"eventx-ticketing/internal/repository/repositorytest"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore(t *testing.T) {
	repositorytest.Run(t, func(t *testing.T) (repository.EventRepository, repository.TicketRepository) {
		store := memory.NewStore()
		return store.Events(), store.Tickets()
	})
}

func TestStore_CancelledContext(t *testing.T) {
	store := memory.NewStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := store.Events().Create(ctx, repositorytest.NewEvent(1, model.EventStatusActive))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, apperrors.ErrStorageUnavailable)
}

func TestStore_ReturnsCopies(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	event := repositorytest.NewEvent(3, model.EventStatusActive)
	require.NoError(t, store.Events().Create(ctx, event))

	found, err := store.Events().FindByID(ctx, event.ID)
	require.NoError(t, err)
	found.BookedSeats = 3

	again, err := store.Events().FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Zero(t, again.BookedSeats)
}

func TestStore_CancelIsAllOrNothing(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()
	// the ticket points at an event the store does not know, so the seat release cannot happen
	orphan := repositorytest.NewEvent(3, model.EventStatusActive)
	seat := "B2"
	ticket := model.NewTicket(orphan, uuid.New(), &seat, orphan.CreatedAt)
	require.NoError(t, store.Tickets().Create(ctx, ticket))

	_, err := store.Tickets().Cancel(ctx, ticket.ID, orphan.CreatedAt)

	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	found, err := store.Tickets().FindByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TicketStatusActive, found.Status)
	assert.Nil(t, found.CancelledAt)
	held, err := store.Tickets().SeatHeld(ctx, orphan.ID, seat)
	require.NoError(t, err)
	assert.True(t, held)
}
