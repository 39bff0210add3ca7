package main

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestSchedulerAfterFires(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	done := make(chan struct{})
	s.After(10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("After task never fired")
	}
	// The task removes itself once fired
	deadline := time.Now().Add(time.Second)
	for s.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 0 pending, got %d", s.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSchedulerAfterCancel(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var fired atomic.Int32
	cancel := s.After(20*time.Millisecond, func() { fired.Add(1) })
	cancel()

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Error("cancelled task must not fire")
	}
	if s.Pending() != 0 {
		t.Errorf("expected 0 pending, got %d", s.Pending())
	}
}

func TestSchedulerEvery(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	var ticks atomic.Int32
	cancel := s.Every(5*time.Millisecond, func() { ticks.Add(1) })

	deadline := time.Now().Add(time.Second)
	for ticks.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected 3 ticks within a second, got %d", ticks.Load())
		}
		time.Sleep(time.Millisecond)
	}
	cancel()
	count := ticks.Load()
	time.Sleep(30 * time.Millisecond)
	// At most one in-flight tick may land after cancel
	if ticks.Load() > count+1 {
		t.Errorf("ticker kept firing after cancel: %d -> %d", count, ticks.Load())
	}
}

func TestSchedulerStopCancelsAll(t *testing.T) {
	s := NewScheduler()

	var fired atomic.Int32
	s.After(time.Hour, func() { fired.Add(1) })
	s.Every(time.Hour, func() { fired.Add(1) })
	if s.Pending() != 2 {
		t.Fatalf("expected 2 pending, got %d", s.Pending())
	}

	s.Stop()
	if s.Pending() != 0 {
		t.Errorf("expected 0 pending after Stop, got %d", s.Pending())
	}
	if fired.Load() != 0 {
		t.Error("stopped tasks must not fire")
	}

	// A stopped scheduler rejects new work
	cancel := s.After(time.Millisecond, func() { fired.Add(1) })
	cancel()
	time.Sleep(20 * time.Millisecond)
	if fired.Load() != 0 || s.Pending() != 0 {
		t.Error("scheduler accepted work after Stop")
	}
}

func TestSchedulerCancelIdempotent(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()

	cancel := s.Every(time.Hour, func() {})
	cancel()
	cancel() // second cancel is a no-op
	if s.Pending() != 0 {
		t.Errorf("expected 0 pending, got %d", s.Pending())
	}
}
