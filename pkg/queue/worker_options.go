package queue

import (
	"log/slog"
	"time"
)

// WorkerOption is a functional option for configuring a worker.
type WorkerOption func(*workerOptions)

type workerOptions struct {
	pullInterval  time.Duration
	leaseDuration time.Duration
	retryDelay    time.Duration
	maxConcurrent int
	logger        *slog.Logger
}

// WithPullInterval sets how often the worker checks for due entries.
func WithPullInterval(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.pullInterval = d
		}
	}
}

// WithLeaseDuration sets how long a claim stays valid before the entry
// becomes reclaimable. Should exceed the worst-case delivery time.
func WithLeaseDuration(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.leaseDuration = d
		}
	}
}

// WithRetryDelay sets how long an entry waits after an infrastructure
// failure before it becomes claimable again.
func WithRetryDelay(d time.Duration) WorkerOption {
	return func(o *workerOptions) {
		if d > 0 {
			o.retryDelay = d
		}
	}
}

// WithMaxConcurrent sets the maximum number of concurrent deliveries.
func WithMaxConcurrent(n int) WorkerOption {
	return func(o *workerOptions) {
		if n > 0 {
			o.maxConcurrent = n
		}
	}
}

// WithWorkerLogger sets the logger for the worker.
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(o *workerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}
