package workers

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dimitrije/teamroom-api/internal/clock"
	"github.com/dimitrije/teamroom-api/internal/models"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// ErrPanicked wraps a panic recovered inside a sweep step.
var ErrPanicked = errors.New("panic during sweep step")

// Finalizer is what the sweeper forces at the deadline.
type Finalizer interface {
	ListExpiredIncomplete(ctx context.Context, now time.Time) ([]models.Setup, error)
	ConfirmSubject(ctx context.Context, roomID uuid.UUID, subject models.Subject) error
	CompleteSetup(ctx context.Context, roomID uuid.UUID) error
}

// Locker keeps a single sweeper active across instances.
type Locker interface {
	Acquire(ctx context.Context, now time.Time) (bool, error)
}

type SubjectResult struct {
	Subject models.Subject
	Err     error
}

type SetupResult struct {
	TeamRoomID        uuid.UUID
	Subjects          []SubjectResult
	WorkflowCompleted bool
	WorkflowErr       error
}

// Failed reports whether any step for this setup failed.
func (r SetupResult) Failed() bool {
	if r.WorkflowErr != nil {
		return true
	}
	for _, s := range r.Subjects {
		if s.Err != nil {
			return true
		}
	}
	return false
}

type SweepReport struct {
	Skipped       bool
	SetupsScanned int
	Results       []SetupResult
}

// Sweeper periodically force-confirms subjects of setups whose deadline passed.
// A failure in one subject never stops the others; failed subjects stay open and are
// retried on the next tick.
type Sweeper struct {
	finalizer Finalizer
	lease     Locker
	clock     clock.Clock
	log       *zap.Logger
	metrics   *sweepMetrics
	interval  time.Duration
	timeout   time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewSweeper creates a sweeper. lease may be nil when only one instance runs.
func NewSweeper(finalizer Finalizer, lease Locker, clk clock.Clock, logger *zap.Logger, reg prometheus.Registerer, interval, timeout time.Duration) *Sweeper {
	return &Sweeper{
		finalizer: finalizer,
		lease:     lease,
		clock:     clk,
		log:       logger,
		metrics:   newSweepMetrics(reg),
		interval:  interval,
		timeout:   timeout,
		stopCh:    make(chan struct{}),
	}
}

func (w *Sweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("confirmation sweeper started",
		zap.Duration("interval", w.interval),
		zap.Duration("timeout", w.timeout))
}

// Stop signals the loop to exit and waits for an in-flight sweep to finish.
func (w *Sweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
	w.log.Info("confirmation sweeper stopped")
}

func (w *Sweeper) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *Sweeper) tick() {
	report, err := w.Sweep(context.Background())
	if err != nil {
		w.log.Error("confirmation sweep failed", zap.Error(err))
		return
	}
	if report.SetupsScanned > 0 {
		failed := 0
		for _, r := range report.Results {
			if r.Failed() {
				failed++
			}
		}
		w.log.Info("confirmation sweep finished",
			zap.Int("setups", report.SetupsScanned),
			zap.Int("with_failures", failed))
	}
}

// Sweep runs one pass over every expired, incomplete setup. Each storage call runs
// under its own timeout, so a call that hangs on one setup cannot use up the time of
// the setups after it.
func (w *Sweeper) Sweep(ctx context.Context) (*SweepReport, error) {
	now := w.clock.Now()

	if w.lease != nil {
		var held bool
		err := w.step(ctx, func(ctx context.Context) (err error) {
			held, err = w.lease.Acquire(ctx, now)
			return err
		})
		if err != nil {
			return nil, err
		}
		if !held {
			w.metrics.skipped.Inc()
			w.log.Debug("sweeper lease held elsewhere, skipping tick")
			return &SweepReport{Skipped: true}, nil
		}
	}

	start := time.Now()
	defer func() { w.metrics.duration.Observe(time.Since(start).Seconds()) }()
	w.metrics.sweeps.Inc()

	var setups []models.Setup
	err := w.step(ctx, func(ctx context.Context) (err error) {
		setups, err = w.finalizer.ListExpiredIncomplete(ctx, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	report := &SweepReport{SetupsScanned: len(setups), Results: make([]SetupResult, 0, len(setups))}
	for i := range setups {
		report.Results = append(report.Results, w.sweepSetup(ctx, &setups[i]))
	}
	return report, nil
}

func (w *Sweeper) sweepSetup(ctx context.Context, setup *models.Setup) SetupResult {
	result := SetupResult{TeamRoomID: setup.TeamRoomID}
	roomField := zap.String("team_room_id", setup.TeamRoomID.String())

	for _, subject := range models.Subjects {
		if setup.Completed(subject) {
			continue
		}
		err := w.step(ctx, func(ctx context.Context) error {
			return w.finalizer.ConfirmSubject(ctx, setup.TeamRoomID, subject)
		})
		result.Subjects = append(result.Subjects, SubjectResult{Subject: subject, Err: err})
		if err != nil {
			w.metrics.subjectResults.WithLabelValues(string(subject), "failed").Inc()
			w.log.Warn("forced confirmation failed",
				roomField, zap.String("subject", string(subject)), zap.Error(err))
			continue
		}
		w.metrics.subjectResults.WithLabelValues(string(subject), "confirmed").Inc()
		setup.MarkCompleted(subject)
	}

	if !setup.IsAllCompleted() {
		return result
	}

	// Flags stay set even if the gate fails. The room is still in SETUP, so the next
	// tick lists it again and only retries the gate.
	result.WorkflowErr = w.step(ctx, func(ctx context.Context) error {
		return w.finalizer.CompleteSetup(ctx, setup.TeamRoomID)
	})
	if result.WorkflowErr != nil {
		w.log.Error("failed to complete setup workflow", roomField, zap.Error(result.WorkflowErr))
		return result
	}
	result.WorkflowCompleted = true
	w.metrics.setupsCompleted.Inc()
	return result
}

// step runs fn under a fresh timeout derived from ctx, with panics contained.
func (w *Sweeper) step(ctx context.Context, fn func(ctx context.Context) error) error {
	stepCtx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	return guard(func() error { return fn(stepCtx) })
}

// guard runs fn and turns a panic into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrPanicked, r)
		}
	}()
	return fn()
}
