package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestSchedulerRunsTaskAfterDelay(t *testing.T) {
	s := NewScheduler(context.Background(), zap.NewNop())

	var ran atomic.Bool
	start := time.Now()
	s.After("grant", 20*time.Millisecond, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	s.Wait()

	if !ran.Load() {
		t.Fatal("expected task to run")
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("task ran before its delay: %s", elapsed)
	}
}

func TestSchedulerSwallowsTaskError(t *testing.T) {
	s := NewScheduler(context.Background(), zap.NewNop())

	var calls atomic.Int32
	s.After("failing", 0, func(context.Context) error {
		calls.Add(1)
		return errors.New("boom")
	})
	s.Wait()

	if calls.Load() != 1 {
		t.Fatalf("expected one call, got %d", calls.Load())
	}
}

func TestSchedulerSkipsTaskWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(ctx, zap.NewNop())

	var ran atomic.Bool
	s.After("late", time.Hour, func(context.Context) error {
		ran.Store(true)
		return nil
	})
	cancel()
	s.Wait()

	if ran.Load() {
		t.Fatal("task must not run after cancellation")
	}
}
