package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type stubPurger struct {
	mu      sync.Mutex
	cutoffs []time.Time
	deleted int64
	err     error
}

func (s *stubPurger) PurgeOtps(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return s.deleted, s.err
}

func (s *stubPurger) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cutoffs)
}

func TestOtpCleanupRunOnceUsesRetention(t *testing.T) {
	purger := &stubPurger{deleted: 3}
	job := NewOtpCleanupJob(purger, 24*time.Hour)
	now := time.Date(2024, 5, 2, 12, 0, 0, 0, time.UTC)
	job.nowFn = func() time.Time { return now }

	deleted, err := job.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}
	if deleted != 3 {
		t.Errorf("expected 3 deleted, got %d", deleted)
	}
	want := now.Add(-24 * time.Hour)
	if !purger.cutoffs[0].Equal(want) {
		t.Errorf("expected cutoff %s, got %s", want, purger.cutoffs[0])
	}
}

func TestOtpCleanupRunOncePropagatesError(t *testing.T) {
	job := NewOtpCleanupJob(&stubPurger{err: errors.New("db down")}, time.Hour)
	if _, err := job.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestOtpCleanupStartRunsImmediatelyAndStops(t *testing.T) {
	purger := &stubPurger{}
	job := NewOtpCleanupJob(purger, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	job.Start(ctx, 10*time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for purger.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	if purger.calls() < 2 {
		t.Fatalf("expected at least 2 purges, got %d", purger.calls())
	}
}
