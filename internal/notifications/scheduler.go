package notifications

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduler periodically runs the evaluator for every active user.
type Scheduler struct {
	evaluator *Evaluator
	interval  time.Duration
	log       *logrus.Entry

	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewScheduler creates a scheduler that runs every interval.
func NewScheduler(evaluator *Evaluator, interval time.Duration, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		evaluator: evaluator,
		interval:  interval,
		log:       logger.WithField("component", "scheduler"),
	}
}

// Start runs a check immediately and then on every tick. A non-positive
// interval disables the scheduler.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.interval <= 0 {
		s.log.Info("Notification scheduler disabled")
		return
	}
	if s.ticker != nil {
		return
	}

	s.ticker = time.NewTicker(s.interval)
	s.stop = make(chan struct{})
	s.wg.Add(1)
	go s.run(s.ticker, s.stop)

	s.log.WithField("interval", s.interval.String()).Info("Notification scheduler started")
}

// Stop halts the scheduler and waits for a running check to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stop)
	s.wg.Wait()
	s.ticker = nil
	s.log.Info("Notification scheduler stopped")
}

func (s *Scheduler) run(ticker *time.Ticker, stop <-chan struct{}) {
	defer s.wg.Done()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-stop
		cancel()
	}()

	s.RunNow(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunNow(ctx)
		case <-stop:
			return
		}
	}
}

// RunNow runs one check for every active user.
func (s *Scheduler) RunNow(ctx context.Context) {
	users, err := s.evaluator.RunAll(ctx)
	if err != nil {
		s.log.WithError(err).Error("Scheduled notification check failed")
		return
	}
	s.log.WithField("users", users).Debug("Scheduled notification check completed")
}
