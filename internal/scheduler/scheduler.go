package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// jobTimeout bounds a single statement run
const jobTimeout = 10 * time.Minute

// StatementRunner builds and delivers monthly statements
type StatementRunner interface {
	SendStatements(ctx context.Context, now time.Time, sender service.StatementSender) (int, error)
}

// Scheduler runs periodic background jobs
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// New creates a scheduler that evaluates schedules in UTC
func New(log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cron.PrintfLogger(log)),
			cron.WithChain(cron.Recover(cron.PrintfLogger(log)), cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		log: log,
	}
}

// AddStatementJob schedules monthly statement delivery on a standard
// five-field cron spec
func (s *Scheduler) AddStatementJob(spec string, runner StatementRunner, sender service.StatementSender) error {
	if _, err := s.cron.AddFunc(spec, s.statementJob(runner, sender)); err != nil {
		return fmt.Errorf("failed to schedule statements %q: %w", spec, err)
	}
	s.log.Infof("Monthly statements scheduled: %s", spec)
	return nil
}

func (s *Scheduler) statementJob(runner StatementRunner, sender service.StatementSender) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()

		start := time.Now()
		sent, err := runner.SendStatements(ctx, start, sender)
		if err != nil {
			s.log.Errorf("Statement job failed after %d sent: %v", sent, err)
			return
		}
		s.log.WithField("duration", time.Since(start).String()).Infof("Statement job finished, %d sent", sent)
	}
}

// Jobs returns the number of scheduled jobs
func (s *Scheduler) Jobs() int {
	return len(s.cron.Entries())
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop prevents new runs and waits for running jobs or ctx, whichever ends first
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
