package service

import (
	"context"
	"testing"

	"eventx-ticketing/internal/model"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapacityLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	event := env.createEvent(t, 2, model.EventStatusActive, nil)

	require.NoError(t, env.ledger.Reserve(ctx, event.ID))
	require.NoError(t, env.ledger.Reserve(ctx, event.ID))
	assert.ErrorIs(t, env.ledger.Reserve(ctx, event.ID), apperrors.ErrEventFull)

	snap, err := env.ledger.Snapshot(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, CapacitySnapshot{Capacity: 2, BookedSeats: 2, Available: 0}, snap)

	assert.ErrorIs(t, env.ledger.Resize(ctx, event.ID, 1), apperrors.ErrBelowSoldCount)
	require.NoError(t, env.ledger.Resize(ctx, event.ID, 4))

	for i := 0; i < 3; i++ {
		require.NoError(t, env.ledger.Release(ctx, event.ID))
	}
	snap, err = env.ledger.Snapshot(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, CapacitySnapshot{Capacity: 4, BookedSeats: 0, Available: 4}, snap)

	require.NoError(t, env.ledger.Resize(ctx, event.ID, 0))
	assert.ErrorIs(t, env.ledger.Reserve(ctx, event.ID), apperrors.ErrEventFull)
	assert.ErrorIs(t, env.ledger.Resize(ctx, event.ID, -1), apperrors.ErrInvalidInput)
}

func TestCapacityLedger_ReserveRequiresBookableEvent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	for _, status := range []model.EventStatus{model.EventStatusDraft, model.EventStatusClosed, model.EventStatusCancelled} {
		event := env.createEvent(t, 5, status, nil)
		assert.ErrorIs(t, env.ledger.Reserve(ctx, event.ID), apperrors.ErrEventNotBookable, string(status))
		assert.Zero(t, env.bookedSeats(t, event.ID))
	}
}
