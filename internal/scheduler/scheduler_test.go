package scheduler

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/finance-tracker/internal/models"
	"github.com/Dan9191/finance-tracker/internal/service"
	"github.com/sirupsen/logrus"
)

type fakeRunner struct {
	calls       int
	sender      service.StatementSender
	hadDeadline bool
	err         error
}

func (f *fakeRunner) SendStatements(ctx context.Context, now time.Time, sender service.StatementSender) (int, error) {
	f.calls++
	f.sender = sender
	_, f.hadDeadline = ctx.Deadline()
	return 3, f.err
}

type nopSender struct{}

func (nopSender) SendStatement(ctx context.Context, st models.Statement) error { return nil }

func newTestScheduler() *Scheduler {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return New(log)
}

func TestAddStatementJob(t *testing.T) {
	s := newTestScheduler()
	if err := s.AddStatementJob("not a schedule", &fakeRunner{}, nopSender{}); err == nil {
		t.Fatal("expected error for invalid schedule")
	}
	if err := s.AddStatementJob("0 8 1 * *", &fakeRunner{}, nopSender{}); err != nil {
		t.Fatalf("AddStatementJob: %v", err)
	}
	if s.Jobs() != 1 {
		t.Fatalf("jobs = %d, want 1", s.Jobs())
	}

	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestStatementJobRunsWithDeadline(t *testing.T) {
	s := newTestScheduler()
	runner := &fakeRunner{}
	sender := nopSender{}

	s.statementJob(runner, sender)()
	if runner.calls != 1 || runner.sender != sender || !runner.hadDeadline {
		t.Fatalf("runner = %+v", runner)
	}

	runner.err = errors.New("db down")
	s.statementJob(runner, sender)()
	if runner.calls != 2 {
		t.Fatalf("calls = %d", runner.calls)
	}
}
