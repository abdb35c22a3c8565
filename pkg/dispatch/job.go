package dispatch

import (
	"context"
	"log/slog"
	"time"

	"github.com/seyniprops/backoffice/pkg/stats"
)

// StatsJob recomputes the previous day's statistics once per day, shortly
// after midnight UTC.
type StatsJob struct {
	aggregator *stats.Aggregator
	runAfter   time.Duration
	logger     *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// StatsJobOption configures a StatsJob.
type StatsJobOption func(*StatsJob)

// WithRunAfterMidnight sets how long past midnight UTC the job fires.
// Default 15 minutes, leaving room for late delivery callbacks from the
// closing day.
func WithRunAfterMidnight(d time.Duration) StatsJobOption {
	return func(j *StatsJob) {
		if d >= 0 {
			j.runAfter = d
		}
	}
}

// WithStatsJobLogger sets the logger for the StatsJob.
func WithStatsJobLogger(logger *slog.Logger) StatsJobOption {
	return func(j *StatsJob) {
		if logger != nil {
			j.logger = logger
		}
	}
}

// NewStatsJob creates the daily statistics job.
func NewStatsJob(aggregator *stats.Aggregator, opts ...StatsJobOption) (*StatsJob, error) {
	if aggregator == nil {
		return nil, ErrDependencyNil
	}

	j := &StatsJob{
		aggregator: aggregator,
		runAfter:   15 * time.Minute,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j, nil
}

// Start launches the job loop in the background.
func (j *StatsJob) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	go func() {
		defer close(j.done)
		for {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Until(j.nextRun(time.Now()))):
				yesterday := time.Now().UTC().AddDate(0, 0, -1)
				if _, err := j.aggregator.Recompute(ctx, yesterday); err != nil {
					j.logger.ErrorContext(ctx, "daily statistics job failed",
						slog.String("date", yesterday.Format("2006-01-02")),
						slog.String("error", err.Error()))
				}
			}
		}
	}()
}

// Stop cancels the job loop and waits for it to exit.
func (j *StatsJob) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
}

// Run starts the job and returns a function suitable for errgroup.
func (j *StatsJob) Run(ctx context.Context) func() error {
	return func() error {
		j.Start(ctx)
		<-ctx.Done()
		j.Stop()
		return nil
	}
}

// nextRun returns the next firing time strictly after now.
func (j *StatsJob) nextRun(now time.Time) time.Time {
	u := now.UTC()
	todayRun := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).Add(j.runAfter)
	if todayRun.After(u) {
		return todayRun
	}
	return todayRun.AddDate(0, 0, 1)
}
