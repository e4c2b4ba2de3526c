package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerRunsRegisteredJob(t *testing.T) {
	s := New()
	var runs atomic.Int64
	err := s.Register(JobSpec{
		Name:       "tick",
		Interval:   5 * time.Millisecond,
		RunOnStart: true,
		Run: func(ctx context.Context) error {
			runs.Add(1)
			return nil
		},
	})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(2 * time.Millisecond)
	}
	if runs.Load() < 2 {
		t.Fatalf("expected at least 2 runs, got %d", runs.Load())
	}

	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestSchedulerRejectsDuplicateJob(t *testing.T) {
	s := New()
	job := JobSpec{Name: "dup", Interval: time.Minute, Run: func(ctx context.Context) error { return nil }}
	if err := s.Register(job); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := s.Register(job); !errors.Is(err, ErrJobExists) {
		t.Fatalf("expected ErrJobExists, got %v", err)
	}
}

func TestSchedulerValidatesJobSpec(t *testing.T) {
	s := New()
	if err := s.Register(JobSpec{Interval: time.Minute, Run: func(ctx context.Context) error { return nil }}); err == nil {
		t.Fatal("missing name must be rejected")
	}
	if err := s.Register(JobSpec{Name: "x", Run: func(ctx context.Context) error { return nil }}); err == nil {
		t.Fatal("missing interval must be rejected")
	}
	if err := s.Register(JobSpec{Name: "x", Interval: time.Minute}); err == nil {
		t.Fatal("missing run callback must be rejected")
	}
}

func TestSchedulerSnapshotTracksFailures(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	if err := s.Register(JobSpec{
		Name:       "failing",
		Interval:   time.Minute,
		RunOnStart: true,
		Run:        func(ctx context.Context) error { return boom },
	}); err != nil {
		t.Fatalf("register failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		snapshot := s.Snapshot()
		if len(snapshot) == 1 && snapshot[0].Runs > 0 {
			if snapshot[0].LastError != "boom" {
				t.Fatalf("unexpected last error: %q", snapshot[0].LastError)
			}
			break
		}
		time.Sleep(2 * time.Millisecond)
	}

	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}

func TestSchedulerDoubleStart(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := s.Start(ctx); !errors.Is(err, ErrSchedulerStart) {
		t.Fatalf("expected ErrSchedulerStart, got %v", err)
	}
	if err := s.Stop(time.Second); err != nil {
		t.Fatalf("stop failed: %v", err)
	}
}
