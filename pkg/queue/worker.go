package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Disposition tells the worker what to do with a queue entry after its
// notification was processed.
type Disposition struct {
	// Requeue keeps the entry alive, due again at ProcessAt. When false the
	// entry is deleted.
	Requeue   bool
	ProcessAt time.Time
}

// Done deletes the entry; the notification left the queue's responsibility.
func Done() Disposition {
	return Disposition{}
}

// RetryAt keeps the entry queued, due again at the given time.
func RetryAt(at time.Time) Disposition {
	return Disposition{Requeue: true, ProcessAt: at}
}

// Processor delivers the notification behind a claimed entry and decides its
// queue disposition. Returning an error signals an infrastructure failure
// (storage down, adapter unreachable at the transport level); the worker then
// releases the entry for a later attempt without consuming a delivery
// attempt.
type Processor interface {
	Process(ctx context.Context, notificationID uuid.UUID) (Disposition, error)
}

// ProcessorFunc adapts a function to the Processor interface.
type ProcessorFunc func(ctx context.Context, notificationID uuid.UUID) (Disposition, error)

func (f ProcessorFunc) Process(ctx context.Context, notificationID uuid.UUID) (Disposition, error) {
	return f(ctx, notificationID)
}

// Worker pulls due entries from the queue and hands them to a Processor.
type Worker struct {
	storage   Storage
	processor Processor
	workerID  uuid.UUID
	sem       chan struct{}
	wg        sync.WaitGroup
	mu        sync.Mutex
	stopMu    sync.Mutex // Protects stopping state and WaitGroup operations

	// Configuration
	pullInterval  time.Duration
	leaseDuration time.Duration
	retryDelay    time.Duration
	logger        *slog.Logger

	// State management
	ctx      context.Context
	cancel   context.CancelFunc
	stopping atomic.Bool
}

// NewWorker creates a new delivery worker.
func NewWorker(storage Storage, processor Processor, opts ...WorkerOption) (*Worker, error) {
	if storage == nil {
		return nil, ErrStorageNil
	}
	if processor == nil {
		return nil, ErrProcessorNil
	}

	options := &workerOptions{
		pullInterval:  time.Second,
		leaseDuration: 2 * time.Minute,
		retryDelay:    30 * time.Second,
		maxConcurrent: 1,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Worker{
		storage:       storage,
		processor:     processor,
		workerID:      uuid.New(),
		sem:           make(chan struct{}, options.maxConcurrent),
		pullInterval:  options.pullInterval,
		leaseDuration: options.leaseDuration,
		retryDelay:    options.retryDelay,
		logger:        options.logger,
	}, nil
}

// Start begins claiming entries in the background.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel != nil {
		w.mu.Unlock()
		return ErrWorkerAlreadyStarted
	}
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	w.stopping.Store(false)

	go w.run()

	w.logger.Info("delivery worker started",
		slog.String("worker_id", w.workerID.String()),
		slog.Int("max_concurrent", cap(w.sem)))

	return nil
}

// Stop gracefully shuts down the worker, waiting for in-flight deliveries.
func (w *Worker) Stop() error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return ErrWorkerNotStarted
	}

	w.stopMu.Lock()
	w.stopping.Store(true)
	w.stopMu.Unlock()

	cancel := w.cancel
	w.cancel = nil
	w.mu.Unlock()

	cancel()

	w.logger.Info("delivery worker stopping, waiting for in-flight deliveries",
		slog.String("worker_id", w.workerID.String()))

	w.wg.Wait()

	w.logger.Info("delivery worker stopped",
		slog.String("worker_id", w.workerID.String()))

	return nil
}

// Run starts the worker and returns a function suitable for errgroup.
func (w *Worker) Run(ctx context.Context) func() error {
	return func() error {
		if err := w.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return w.Stop()
	}
}

// run is the main claim loop.
func (w *Worker) run() {
	ticker := time.NewTicker(w.pullInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			select {
			case w.sem <- struct{}{}:
				// Use stopMu to ensure we don't add to WaitGroup after
				// Stop() starts.
				w.stopMu.Lock()
				if w.stopping.Load() {
					w.stopMu.Unlock()
					<-w.sem
					return
				}
				w.wg.Add(1)
				w.stopMu.Unlock()

				go func() {
					defer w.wg.Done()
					defer func() { <-w.sem }()

					if err := w.claimAndProcess(); err != nil {
						w.logger.Error("failed to process queue entry",
							slog.String("worker_id", w.workerID.String()),
							slog.String("error", err.Error()))
					}
				}()
			default:
				w.logger.Debug("all worker slots busy, skipping tick",
					slog.String("worker_id", w.workerID.String()))
			}
		}
	}
}

// claimAndProcess claims one due entry and runs the processor on it.
func (w *Worker) claimAndProcess() error {
	entry, err := w.storage.Claim(w.ctx, w.workerID, w.leaseDuration)
	if err != nil {
		if errors.Is(err, ErrNothingToClaim) {
			return nil
		}
		return fmt.Errorf("failed to claim entry: %w", err)
	}

	w.logger.Debug("claimed queue entry",
		slog.String("worker_id", w.workerID.String()),
		slog.String("entry_id", entry.ID.String()),
		slog.String("notification_id", entry.NotificationID.String()),
		slog.String("priority", entry.Priority.String()))

	return w.processEntry(entry)
}

// processEntry runs the processor and applies its disposition.
func (w *Worker) processEntry(entry *Entry) (retErr error) {
	start := time.Now()

	// Processing and disposition persistence are not tied to the worker
	// lifecycle: graceful shutdown lets in-flight deliveries finish and
	// still record their outcome, otherwise the entry stays claimed until
	// lease expiry and the notification is delivered twice after restart.
	// The lease bounds the runtime.
	ctx, cancel := context.WithTimeout(context.Background(), w.leaseDuration)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			retErr = fmt.Errorf("panic in processor: %v", r)
			w.logger.Error("processor panicked",
				slog.String("worker_id", w.workerID.String()),
				slog.String("entry_id", entry.ID.String()),
				slog.String("notification_id", entry.NotificationID.String()),
				slog.Any("panic", r))
			// Release the entry so another worker can pick it up.
			_ = w.releaseAfterFailure(ctx, entry)
		}
	}()

	disposition, err := w.processor.Process(ctx, entry.NotificationID)
	duration := time.Since(start)

	if err != nil {
		w.logger.Error("entry processing failed",
			slog.String("worker_id", w.workerID.String()),
			slog.String("entry_id", entry.ID.String()),
			slog.String("notification_id", entry.NotificationID.String()),
			slog.Duration("duration", duration),
			slog.String("error", err.Error()))
		return w.releaseAfterFailure(ctx, entry)
	}

	if disposition.Requeue {
		if err := w.storage.Release(ctx, entry.ID, disposition.ProcessAt); err != nil {
			return fmt.Errorf("failed to requeue entry %s: %w", entry.ID, err)
		}
		w.logger.Debug("entry requeued",
			slog.String("worker_id", w.workerID.String()),
			slog.String("entry_id", entry.ID.String()),
			slog.Time("process_at", disposition.ProcessAt),
			slog.Duration("duration", duration))
		return nil
	}

	if err := w.storage.Delete(ctx, entry.ID); err != nil {
		return fmt.Errorf("failed to delete entry %s: %w", entry.ID, err)
	}
	w.logger.Debug("entry completed",
		slog.String("worker_id", w.workerID.String()),
		slog.String("entry_id", entry.ID.String()),
		slog.Duration("duration", duration))
	return nil
}

// releaseAfterFailure returns the entry to the queue after an infrastructure
// failure, due again after retryDelay. The delivery attempt counter on the
// notification is untouched.
func (w *Worker) releaseAfterFailure(ctx context.Context, entry *Entry) error {
	if err := w.storage.Release(ctx, entry.ID, time.Now().Add(w.retryDelay)); err != nil {
		return fmt.Errorf("failed to release entry %s: %w", entry.ID, err)
	}
	return nil
}

// WorkerInfo returns identifying information about the worker process.
func (w *Worker) WorkerInfo() (id string, hostname string, pid int) {
	hostname, _ = os.Hostname()
	return w.workerID.String(), hostname, os.Getpid()
}
