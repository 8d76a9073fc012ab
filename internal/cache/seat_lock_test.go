package cache_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"eventx-ticketing/internal/cache"
	"eventx-ticketing/internal/testutil"
	apperrors "eventx-ticketing/pkg/app_errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisSeatLocker(t *testing.T) {
	rdb := testutil.Redis(t)
	locker := cache.NewRedisSeatLocker(rdb, 2*time.Second)
	ctx := context.Background()
	eventID := uuid.New()

	t.Run("Success", func(t *testing.T) {
		token, err := locker.Acquire(ctx, eventID, "A1")
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		require.NoError(t, locker.Release(ctx, eventID, "A1", token))

		_, err = locker.Acquire(ctx, eventID, "A1")
		require.NoError(t, err)
	})

	t.Run("Failed - seat held", func(t *testing.T) {
		_, err := locker.Acquire(ctx, eventID, "B1")
		require.NoError(t, err)

		_, err = locker.Acquire(ctx, eventID, "B1")
		assert.ErrorIs(t, err, apperrors.ErrSeatTaken)
	})

	t.Run("Release with stale token keeps lock", func(t *testing.T) {
		token, err := locker.Acquire(ctx, eventID, "C1")
		require.NoError(t, err)

		require.NoError(t, locker.Release(ctx, eventID, "C1", "someone-else"))
		_, err = locker.Acquire(ctx, eventID, "C1")
		assert.ErrorIs(t, err, apperrors.ErrSeatTaken)

		require.NoError(t, locker.Release(ctx, eventID, "C1", token))
	})

	t.Run("Concurrent acquire has one winner", func(t *testing.T) {
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := locker.Acquire(ctx, eventID, "D1"); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.EqualValues(t, 1, wins.Load())
	})
}

func TestNoopSeatLocker(t *testing.T) {
	var locker cache.SeatLocker = cache.NoopSeatLocker{}
	token, err := locker.Acquire(context.Background(), uuid.New(), "A1")
	require.NoError(t, err)
	assert.NoError(t, locker.Release(context.Background(), uuid.New(), "A1", token))
}
