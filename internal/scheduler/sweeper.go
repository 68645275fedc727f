/*
Package scheduler runs the expiration sweep.

Each tick captures now, asks the leave service to close every leave whose
end date has passed, then hands the resulting intents to the effect applier
one closed leave at a time. Ticks run on a single goroutine and RunNow shares
its mutex, so two sweeps never overlap. A missed tick is harmless: expiry is
a predicate on the stored end date and the next tick picks it up.

USAGE:

	sweeper := scheduler.NewExpirationSweeper(leaveService, effects, logger)
	sweeper.Start()
	// ... later
	sweeper.Stop()
*/
package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"loa-bot/internal/platform"
	"loa-bot/internal/service"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const DefaultInterval = time.Minute

type ExpiredLeaveCloser interface {
	SweepExpired(ctx context.Context, now time.Time) ([]service.ClosedLeave, error)
}

type IntentApplier interface {
	Apply(ctx context.Context, actorID string, intents []service.Intent) service.Outcomes
}

// ExpirationSweeper closes expired leaves on a fixed interval.
type ExpirationSweeper struct {
	Interval time.Duration
	Enabled  bool
	Now      func() time.Time

	closer  ExpiredLeaveCloser
	applier IntentApplier
	logger  *logrus.Logger

	ticker  *time.Ticker
	stop    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	sweepMu sync.Mutex
}

func NewExpirationSweeper(closer ExpiredLeaveCloser, applier IntentApplier, logger *logrus.Logger) *ExpirationSweeper {
	if logger == nil {
		logger = logrus.New()
	}
	return &ExpirationSweeper{
		Interval: DefaultInterval,
		Enabled:  true,
		Now:      time.Now,
		closer:   closer,
		applier:  applier,
		logger:   logger,
	}
}

// Start sweeps once immediately and then on every tick. Calling Start on a
// running sweeper does nothing.
func (s *ExpirationSweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.logger.Info("Expiration sweeper disabled, not starting")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.Interval)
	s.stop = make(chan struct{})
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.wg.Add(1)

	go s.run(s.ctx, s.ticker, s.stop)

	s.logger.Infof("Expiration sweeper started with interval %v", s.Interval)
}

// Stop prevents new ticks and waits for an in-flight tick. Store work of
// that tick completes; platform calls still pending are cancelled.
func (s *ExpirationSweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}

	s.ticker.Stop()
	s.cancel()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil

	s.logger.Info("Expiration sweeper stopped")
}

func (s *ExpirationSweeper) run(ctx context.Context, ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	s.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.sweep(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow performs one sweep synchronously and returns how many leaves it closed.
// Cancelling ctx does not stop the sweep: a closed leave always gets its
// intents dispatched. Only Stop may skip dispatch.
func (s *ExpirationSweeper) RunNow(ctx context.Context) (int, error) {
	return s.sweep(context.WithoutCancel(ctx))
}

func (s *ExpirationSweeper) sweep(ctx context.Context) (int, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	now := s.Now()
	log := s.logger.WithField("run_id", uuid.NewString())

	closed, err := s.closer.SweepExpired(context.WithoutCancel(ctx), now)
	if err != nil {
		log.WithError(err).Error("Expiration sweep failed")
		return 0, err
	}

	failed := 0
	for _, c := range closed {
		if ctx.Err() != nil {
			log.WithField("subject_id", c.Leave.SubjectID).Warn("Sweeper stopping, intents not dispatched")
			failed++
			continue
		}

		outcomes := s.applier.Apply(ctx, "", c.Intents)
		for _, o := range outcomes {
			if o.Err == nil || errors.Is(o.Err, platform.ErrMarkerAbsent) {
				continue
			}
			log.WithFields(logrus.Fields{
				"subject_id": c.Leave.SubjectID,
				"intent":     o.Intent.Kind.String(),
			}).WithError(o.Err).Warn("Expired leave closed but intent failed")
			failed++
		}
	}

	if len(closed) > 0 {
		log.WithFields(logrus.Fields{
			"closed": len(closed),
			"failed": failed,
		}).Info("Expiration sweep completed")
	}

	return len(closed), nil
}
