package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/logging"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/metrics"
	"github.com/vladvasiliu/opsgenie-desktop/agent/internal/notify"
)

// State is the scheduler lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

// Syncer fetches remote changes and returns newly observed alert IDs.
type Syncer interface {
	Sync(ctx context.Context) ([]string, error)
}

// Dispatcher notifies newly observed alerts.
type Dispatcher interface {
	Dispatch(ctx context.Context, ids []string) notify.Report
}

// CycleResult describes one finished cycle.
type CycleResult struct {
	ID       string
	Started  time.Time
	Duration time.Duration
	NewIDs   []string
	Report   notify.Report
	Err      error
}

// Options configures a Scheduler.
type Options struct {
	Interval time.Duration

	// OnCycle, if set, is called on the scheduler goroutine after every cycle.
	OnCycle func(CycleResult)

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Scheduler runs cycles until cancelled. A Scheduler is single-use.
type Scheduler struct {
	syncer     Syncer
	dispatcher Dispatcher
	interval   time.Duration
	onCycle    func(CycleResult)
	metrics    *metrics.Metrics
	logger     *slog.Logger
	now        func() time.Time

	state      atomic.Int32
	intervalCh chan time.Duration
}

// New returns an idle Scheduler.
func New(syncer Syncer, dispatcher Dispatcher, opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		syncer:     syncer,
		dispatcher: dispatcher,
		interval:   opts.Interval,
		onCycle:    opts.OnCycle,
		metrics:    opts.Metrics,
		logger:     logger,
		now:        time.Now,
		intervalCh: make(chan time.Duration, 1),
	}
}

// State returns the current lifecycle state. Safe for concurrent use.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// SetInterval changes the tick interval; the loop picks it up the next time
// it waits. Non-positive values are ignored. Safe for concurrent use.
func (s *Scheduler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	for {
		select {
		case s.intervalCh <- d:
			return
		default:
		}
		// Replace a pending, not yet applied interval.
		select {
		case <-s.intervalCh:
		default:
		}
	}
}

// Run blocks until ctx is cancelled and returns nil once stopped.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.interval <= 0 {
		return errors.New("scheduler: interval must be positive")
	}
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return errors.New("scheduler: already started")
	}
	defer s.state.Store(int32(StateStopped))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler: started", "interval", s.interval)
	s.runCycle(ctx)

	for {
		s.state.Store(int32(StateIdle))

		// A pending cancellation wins over a pending tick.
		if ctx.Err() != nil {
			s.logger.Info("scheduler: stopped")
			return nil
		}

		select {
		case <-ctx.Done():
			s.logger.Info("scheduler: stopped")
			return nil

		case d := <-s.intervalCh:
			if d != s.interval {
				s.interval = d
				ticker.Reset(d)
				s.logger.Info("scheduler: interval changed", "interval", d)
			}

		case <-ticker.C:
			s.runCycle(ctx)
		}
	}
}

func (s *Scheduler) runCycle(parent context.Context) {
	s.state.Store(int32(StateRunning))

	id := uuid.NewString()
	ctx := logging.WithCycle(context.WithoutCancel(parent), id)
	res := CycleResult{ID: id, Started: s.now()}

	ids, err := s.syncer.Sync(ctx)
	if err != nil {
		res.Err = err
		s.logger.ErrorContext(ctx, "scheduler: sync failed, retrying next tick", "err", err)
	} else {
		res.NewIDs = ids
		if len(ids) > 0 {
			res.Report = s.dispatcher.Dispatch(ctx, ids)
		}
	}

	finished := s.now()
	res.Duration = finished.Sub(res.Started)

	result := metrics.CycleOK
	if res.Err != nil {
		result = metrics.CycleError
	}
	s.metrics.ObserveCycle(result, res.Duration, finished)

	if res.Err == nil {
		s.logger.InfoContext(ctx, "scheduler: cycle complete",
			"new", len(res.NewIDs),
			"sent", res.Report.Sent,
			"filtered", res.Report.Filtered,
			"failed", res.Report.Failed,
			"took", res.Duration.Round(time.Millisecond),
		)
	}
	if s.onCycle != nil {
		s.onCycle(res)
	}
}
