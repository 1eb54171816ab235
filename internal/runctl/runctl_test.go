package runctl_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"exohunt/internal/runctl"
	"exohunt/internal/services"
)

func TestInterruptSkipsCurrentItem(t *testing.T) {
	ctl := runctl.New(context.Background(), runctl.Options{Policy: runctl.PolicySkipItem, HardStopWindow: time.Nanosecond}, nil)
	defer ctl.Stop()

	var seen []int
	err := ctl.ForEach(3, func(ctx context.Context, index int) error {
		seen = append(seen, index)
		if index == 1 {
			ctl.Interrupt()
			<-ctx.Done()
			return services.Wrap(services.ErrInterrupted, "test", "item", "", ctx.Err())
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ForEach returned %v", err)
	}
	if len(seen) != 3 {
		t.Fatalf("expected all three items to run, got %v", seen)
	}
	if ctl.Stopped() {
		t.Fatal("single interrupt must not stop the run")
	}
}

func TestSecondInterruptStopsRun(t *testing.T) {
	ctl := runctl.New(context.Background(), runctl.Options{Policy: runctl.PolicySkipItem, HardStopWindow: time.Minute}, nil)
	defer ctl.Stop()

	calls := 0
	err := ctl.ForEach(5, func(ctx context.Context, index int) error {
		calls++
		ctl.Interrupt()
		return nil
	})
	if !errors.Is(err, services.ErrInterrupted) {
		t.Fatalf("expected ErrInterrupted, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected the run to stop after the second item, ran %d", calls)
	}
}

func TestStopPolicyCancelsRoot(t *testing.T) {
	ctl := runctl.New(context.Background(), runctl.Options{Policy: runctl.PolicyStop}, nil)
	defer ctl.Stop()

	ctl.Interrupt()
	if !ctl.Stopped() {
		t.Fatal("stop policy must cancel the run on the first interrupt")
	}
}

func TestFatalErrorEndsLoop(t *testing.T) {
	ctl := runctl.New(context.Background(), runctl.Options{}, nil)
	defer ctl.Stop()

	calls := 0
	err := ctl.ForEach(4, func(context.Context, int) error {
		calls++
		if calls == 2 {
			return services.Wrap(services.ErrConfiguration, "test", "item", "bad", nil)
		}
		return errors.New("item failed")
	})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected loop to end at the fatal item, ran %d", calls)
	}
}

func TestItemContextCarriesIndex(t *testing.T) {
	ctl := runctl.New(context.Background(), runctl.Options{}, nil)
	defer ctl.Stop()

	var got []int
	_ = ctl.ForEach(2, func(ctx context.Context, _ int) error {
		idx, _ := services.IndexFromContext(ctx)
		got = append(got, idx)
		return nil
	})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("unexpected indices %v", got)
	}
}

func TestTerminateCancelsRoot(t *testing.T) {
	ctl := runctl.New(context.Background(), runctl.Options{}, nil)
	defer ctl.Stop()
	ctl.Terminate()
	if err := runctl.Check(ctl.Context(), "test", "loop"); !runctl.IsInterrupt(err) {
		t.Fatalf("expected interrupt error, got %v", err)
	}
}

func TestRunLockIsExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "exohunt.lock")
	first, err := runctl.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if _, err := runctl.AcquireLock(path); !errors.Is(err, runctl.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := first.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	second, err := runctl.AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	_ = second.Release()
}
