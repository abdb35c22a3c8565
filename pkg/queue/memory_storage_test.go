package queue_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seyniprops/backoffice/pkg/queue"
)

func TestMemoryStorage_Enqueue(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("duplicate notification rejected", func(t *testing.T) {
		t.Parallel()

		store := queue.NewMemoryStorage()
		defer store.Close()

		notificationID := uuid.New()
		first := queue.NewEntry(notificationID, queue.PriorityNormal, time.Now())
		require.NoError(t, store.Enqueue(ctx, first))

		second := queue.NewEntry(notificationID, queue.PriorityHigh, time.Now())
		assert.ErrorIs(t, store.Enqueue(ctx, second), queue.ErrAlreadyQueued)
	})

	t.Run("nil entry rejected", func(t *testing.T) {
		t.Parallel()

		store := queue.NewMemoryStorage()
		defer store.Close()

		assert.ErrorIs(t, store.Enqueue(ctx, nil), queue.ErrEntryNil)
	})

	t.Run("re-enqueue allowed after delete", func(t *testing.T) {
		t.Parallel()

		store := queue.NewMemoryStorage()
		defer store.Close()

		notificationID := uuid.New()
		entry := queue.NewEntry(notificationID, queue.PriorityNormal, time.Now())
		require.NoError(t, store.Enqueue(ctx, entry))
		require.NoError(t, store.Delete(ctx, entry.ID))

		again := queue.NewEntry(notificationID, queue.PriorityNormal, time.Now())
		assert.NoError(t, store.Enqueue(ctx, again))
	})
}

func TestMemoryStorage_Claim(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	workerID := uuid.New()

	t.Run("priority beats due time", func(t *testing.T) {
		t.Parallel()

		store := queue.NewMemoryStorage()
		defer store.Close()

		now := time.Now()
		normal := queue.NewEntry(uuid.New(), queue.PriorityNormal, now.Add(-time.Minute))
		urgent := queue.NewEntry(uuid.New(), queue.PriorityUrgent, now)
		require.NoError(t, store.Enqueue(ctx, normal))
		require.NoError(t, store.Enqueue(ctx, urgent))

		claimed, err := store.Claim(ctx, workerID, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, urgent.ID, claimed.ID, "urgent entry claimed before an older normal one")
	})

	t.Run("earliest due wins within a priority tier", func(t *testing.T) {
		t.Parallel()

		store := queue.NewMemoryStorage()
		defer store.Close()

		now := time.Now()
		later := queue.NewEntry(uuid.New(), queue.PriorityHigh, now.Add(-time.Second))
		earlier := queue.NewEntry(uuid.New(), queue.PriorityHigh, now.Add(-time.Minute))
		require.NoError(t, store.Enqueue(ctx, later))
		require.NoError(t, store.Enqueue(ctx, earlier))

		claimed, err := store.Claim(ctx, workerID, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, earlier.ID, claimed.ID)
	})

	t.Run("future entries are not claimable", func(t *testing.T) {
		t.Parallel()

		store := queue.NewMemoryStorage()
		defer store.Close()

		entry := queue.NewEntry(uuid.New(), queue.PriorityUrgent, time.Now().Add(time.Hour))
		require.NoError(t, store.Enqueue(ctx, entry))

		_, err := store.Claim(ctx, workerID, time.Minute)
		assert.ErrorIs(t, err, queue.ErrNothingToClaim)
	})

	t.Run("claimed entries are invisible to other workers", func(t *testing.T) {
		t.Parallel()

		store := queue.NewMemoryStorage()
		defer store.Close()

		entry := queue.NewEntry(uuid.New(), queue.PriorityNormal, time.Now())
		require.NoError(t, store.Enqueue(ctx, entry))

		_, err := store.Claim(ctx, workerID, time.Minute)
		require.NoError(t, err)

		_, err = store.Claim(ctx, uuid.New(), time.Minute)
		assert.ErrorIs(t, err, queue.ErrNothingToClaim)
	})

	t.Run("claim records lease metadata", func(t *testing.T) {
		t.Parallel()

		store := queue.NewMemoryStorage()
		defer store.Close()

		entry := queue.NewEntry(uuid.New(), queue.PriorityNormal, time.Now())
		require.NoError(t, store.Enqueue(ctx, entry))

		claimed, err := store.Claim(ctx, workerID, time.Minute)
		require.NoError(t, err)
		assert.True(t, claimed.Claimed)
		require.NotNil(t, claimed.ClaimedBy)
		assert.Equal(t, workerID, *claimed.ClaimedBy)
		require.NotNil(t, claimed.LeaseUntil)
		assert.WithinDuration(t, time.Now().Add(time.Minute), *claimed.LeaseUntil, 5*time.Second)
	})
}

func TestMemoryStorage_Release(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	workerID := uuid.New()

	store := queue.NewMemoryStorage()
	defer store.Close()

	entry := queue.NewEntry(uuid.New(), queue.PriorityNormal, time.Now())
	require.NoError(t, store.Enqueue(ctx, entry))

	claimed, err := store.Claim(ctx, workerID, time.Minute)
	require.NoError(t, err)

	// Released in the past: claimable again immediately.
	require.NoError(t, store.Release(ctx, claimed.ID, time.Now().Add(-time.Second)))

	reclaimed, err := store.Claim(ctx, uuid.New(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, entry.ID, reclaimed.ID)

	assert.ErrorIs(t, store.Release(ctx, uuid.New(), time.Now()), queue.ErrEntryNotFound)
}

func TestMemoryStorage_LeaseExpiry(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store := queue.NewMemoryStorage()
	defer store.Close()

	entry := queue.NewEntry(uuid.New(), queue.PriorityNormal, time.Now())
	require.NoError(t, store.Enqueue(ctx, entry))

	// Claim with a lease short enough to expire within the test.
	_, err := store.Claim(ctx, uuid.New(), 100*time.Millisecond)
	require.NoError(t, err)

	// The expiration manager ticks every second; wait for it to reclaim.
	require.Eventually(t, func() bool {
		_, err := store.Claim(ctx, uuid.New(), time.Minute)
		return err == nil
	}, 5*time.Second, 100*time.Millisecond, "expired lease should make the entry claimable again")
}

func TestMemoryStorage_Delete(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	store := queue.NewMemoryStorage()
	defer store.Close()

	entry := queue.NewEntry(uuid.New(), queue.PriorityNormal, time.Now())
	require.NoError(t, store.Enqueue(ctx, entry))
	require.Equal(t, 1, store.Len())

	require.NoError(t, store.Delete(ctx, entry.ID))
	assert.Equal(t, 0, store.Len())

	assert.ErrorIs(t, store.Delete(ctx, entry.ID), queue.ErrEntryNotFound)
}
