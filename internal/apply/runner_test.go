package apply

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ipo_applier/internal/broker"
	apperrors "ipo_applier/internal/errors"
	"ipo_applier/internal/models"
)

// gatedBroker blocks logins until released.
type gatedBroker struct {
	*fakeBroker
	entered chan struct{}
	release chan struct{}
}

func (g *gatedBroker) Login(ctx context.Context, account string, creds models.Credentials) (*broker.Session, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.fakeBroker.Login(ctx, account, creds)
}

type countingNotifier struct {
	mu    sync.Mutex
	calls int
}

func (n *countingNotifier) NotifyRun(ctx context.Context, s *RunSummary) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls++
	return errors.New("smtp down")
}

func TestRunner_SingleFlight(t *testing.T) {
	gb := &gatedBroker{
		fakeBroker: newFakeBroker(nil),
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	svc := NewService(gb, Options{Sleeper: recordingSleeper{events: &[]string{}}})
	notifier := &countingNotifier{}
	runner := NewRunner(svc, []models.Account{account("A")}, testShared, notifier, nil)
	defer runner.Close()

	done := make(chan *RunSummary, 1)
	runner.OnComplete(func(s *RunSummary) { done <- s })

	runID, err := runner.Start(TriggerAPI)
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-gb.entered

	if current, running := runner.Running(); !running || current != runID {
		t.Errorf("Running() = %q, %v; want %q, true", current, running, runID)
	}

	if _, err := runner.Run(context.Background(), TriggerCLI); !errors.Is(err, apperrors.ErrRunInProgress) {
		t.Errorf("Run() during active run error = %v, want ErrRunInProgress", err)
	}
	if _, err := runner.Start(TriggerSchedule); !errors.Is(err, apperrors.ErrRunInProgress) {
		t.Errorf("Start() during active run error = %v, want ErrRunInProgress", err)
	}

	close(gb.release)

	select {
	case s := <-done:
		if s.Run.ID != runID {
			t.Errorf("completed run = %s, want %s", s.Run.ID, runID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not complete")
	}

	if _, running := runner.Running(); running {
		t.Error("runner should be idle after completion")
	}
	notifier.mu.Lock()
	if notifier.calls != 1 {
		t.Errorf("notifier called %d times, want 1", notifier.calls)
	}
	notifier.mu.Unlock()

	summary, err := runner.Run(context.Background(), TriggerCLI)
	if err != nil {
		t.Fatalf("Run() after completion error = %v", err)
	}
	<-done
	if summary.Run.Trigger != TriggerCLI {
		t.Errorf("Trigger = %s, want cli", summary.Run.Trigger)
	}
}

func TestRunner_CloseCancelsBackgroundRun(t *testing.T) {
	gb := &gatedBroker{
		fakeBroker: newFakeBroker(nil),
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	svc := NewService(gb, Options{Sleeper: recordingSleeper{events: &[]string{}}})
	runner := NewRunner(svc, []models.Account{account("A")}, testShared, nil, nil)

	if _, err := runner.Start(TriggerSchedule); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	<-gb.entered

	closed := make(chan struct{})
	go func() {
		runner.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close() did not cancel the active run")
	}
}
