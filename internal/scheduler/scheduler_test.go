package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingPurger struct {
	calls atomic.Int32
	err   error
}

func (p *countingPurger) Purge(context.Context) (int, error) {
	p.calls.Add(1)
	return 2, p.err
}

func TestRunOnce(t *testing.T) {
	p := &countingPurger{}
	s := New(p, time.Minute)
	s.RunOnce()
	if got := p.calls.Load(); got != 1 {
		t.Fatalf("expected 1 purge, got %d", got)
	}

	p.err = errors.New("disk full")
	s.RunOnce()
	if got := p.calls.Load(); got != 2 {
		t.Fatalf("expected failed purge to be attempted, got %d calls", got)
	}
}

func TestStartRunsImmediately(t *testing.T) {
	p := &countingPurger{}
	s := New(p, time.Hour)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for p.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if p.calls.Load() == 0 {
		t.Fatal("expected purge to run on start")
	}
}

func TestStartWithoutPurger(t *testing.T) {
	s := New(nil, time.Minute)
	if err := s.Start(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Stop()
}
