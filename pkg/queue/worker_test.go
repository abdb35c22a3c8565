package queue_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seyniprops/backoffice/pkg/queue"
)

// recordingProcessor captures processed notification IDs and serves canned
// dispositions.
type recordingProcessor struct {
	mu          sync.Mutex
	processed   []uuid.UUID
	disposition queue.Disposition
	err         error
}

func (p *recordingProcessor) Process(_ context.Context, notificationID uuid.UUID) (queue.Disposition, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.processed = append(p.processed, notificationID)
	return p.disposition, p.err
}

func (p *recordingProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.processed)
}

func TestNewWorker(t *testing.T) {
	t.Parallel()

	store := queue.NewMemoryStorage()
	defer store.Close()

	_, err := queue.NewWorker(nil, &recordingProcessor{})
	assert.ErrorIs(t, err, queue.ErrStorageNil)

	_, err = queue.NewWorker(store, nil)
	assert.ErrorIs(t, err, queue.ErrProcessorNil)

	w, err := queue.NewWorker(store, &recordingProcessor{})
	require.NoError(t, err)
	assert.NotNil(t, w)
}

func TestWorker_ProcessesAndDeletes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStorage()
	defer store.Close()

	notificationID := uuid.New()
	require.NoError(t, store.Enqueue(ctx, queue.NewEntry(notificationID, queue.PriorityNormal, time.Now())))

	processor := &recordingProcessor{disposition: queue.Done()}
	w, err := queue.NewWorker(store, processor,
		queue.WithPullInterval(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.Eventually(t, func() bool {
		return processor.count() == 1 && store.Len() == 0
	}, 5*time.Second, 20*time.Millisecond)

	processor.mu.Lock()
	assert.Equal(t, notificationID, processor.processed[0])
	processor.mu.Unlock()
}

func TestWorker_RequeueDisposition(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStorage()
	defer store.Close()

	require.NoError(t, store.Enqueue(ctx, queue.NewEntry(uuid.New(), queue.PriorityNormal, time.Now())))

	// First pass requeues immediately, so the entry is processed again.
	processor := &recordingProcessor{disposition: queue.RetryAt(time.Now())}
	w, err := queue.NewWorker(store, processor,
		queue.WithPullInterval(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.Eventually(t, func() bool {
		return processor.count() >= 2
	}, 5*time.Second, 20*time.Millisecond, "requeued entry should be claimed again")

	assert.Equal(t, 1, store.Len(), "entry stays in the queue while requeued")
}

func TestWorker_ReleasesOnProcessorError(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStorage()
	defer store.Close()

	require.NoError(t, store.Enqueue(ctx, queue.NewEntry(uuid.New(), queue.PriorityNormal, time.Now())))

	processor := &recordingProcessor{err: errors.New("storage unavailable")}
	w, err := queue.NewWorker(store, processor,
		queue.WithPullInterval(10*time.Millisecond),
		queue.WithRetryDelay(10*time.Millisecond))
	require.NoError(t, err)

	require.NoError(t, w.Start(ctx))
	defer func() { _ = w.Stop() }()

	require.Eventually(t, func() bool {
		return processor.count() >= 2
	}, 5*time.Second, 20*time.Millisecond, "entry released after an error should be retried")

	assert.Equal(t, 1, store.Len())
}

func TestWorker_StartStop(t *testing.T) {
	t.Parallel()

	store := queue.NewMemoryStorage()
	defer store.Close()

	w, err := queue.NewWorker(store, &recordingProcessor{})
	require.NoError(t, err)

	assert.ErrorIs(t, w.Stop(), queue.ErrWorkerNotStarted)

	require.NoError(t, w.Start(context.Background()))
	assert.ErrorIs(t, w.Start(context.Background()), queue.ErrWorkerAlreadyStarted)

	require.NoError(t, w.Stop())
	assert.ErrorIs(t, w.Stop(), queue.ErrWorkerNotStarted)
}

// ctxAwareStorage rejects writes on a done context the way a real database
// driver would.
type ctxAwareStorage struct {
	*queue.MemoryStorage
}

func (s *ctxAwareStorage) Release(ctx context.Context, id uuid.UUID, processAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStorage.Release(ctx, id, processAt)
}

func (s *ctxAwareStorage) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.MemoryStorage.Delete(ctx, id)
}

func TestWorker_PersistsDispositionDuringShutdown(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &ctxAwareStorage{MemoryStorage: queue.NewMemoryStorage()}
	defer store.Close()

	require.NoError(t, store.Enqueue(ctx, queue.NewEntry(uuid.New(), queue.PriorityNormal, time.Now())))

	started := make(chan struct{})
	processor := queue.ProcessorFunc(func(context.Context, uuid.UUID) (queue.Disposition, error) {
		close(started)
		// Stop cancels the worker context while the delivery is in flight.
		time.Sleep(100 * time.Millisecond)
		return queue.Done(), nil
	})

	w, err := queue.NewWorker(store, processor,
		queue.WithPullInterval(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))

	<-started
	require.NoError(t, w.Stop())

	assert.Equal(t, 0, store.Len(),
		"finished delivery must be deleted even though the worker context is canceled, or it is re-sent after lease expiry")
}

func TestWorker_GracefulStopWaitsForInflight(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := queue.NewMemoryStorage()
	defer store.Close()

	require.NoError(t, store.Enqueue(ctx, queue.NewEntry(uuid.New(), queue.PriorityNormal, time.Now())))

	started := make(chan struct{})
	var finished sync.WaitGroup
	finished.Add(1)

	processor := queue.ProcessorFunc(func(context.Context, uuid.UUID) (queue.Disposition, error) {
		close(started)
		time.Sleep(200 * time.Millisecond)
		finished.Done()
		return queue.Done(), nil
	})

	w, err := queue.NewWorker(store, processor,
		queue.WithPullInterval(10*time.Millisecond))
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))

	<-started
	require.NoError(t, w.Stop())

	// Stop must have waited for the processor to finish.
	done := make(chan struct{})
	go func() {
		finished.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("worker stopped before in-flight delivery finished")
	}
}
