package services

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestScheduler_FiresOnce(t *testing.T) {
	s := newTimeoutScheduler()
	defer s.Stop()

	done := make(chan struct{})
	s.Schedule("h1", 10*time.Millisecond, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timer did not fire")
	}
	if s.Len() != 0 {
		t.Fatalf("fired timer still registered: %d", s.Len())
	}
}

func TestScheduler_CancelPreventsFire(t *testing.T) {
	s := newTimeoutScheduler()
	defer s.Stop()

	var fired atomic.Int32
	s.Schedule("h1", 20*time.Millisecond, func() { fired.Add(1) })
	s.Cancel("h1")
	s.Cancel("unknown")

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 {
		t.Fatal("cancelled timer fired")
	}
}

func TestScheduler_RescheduleReplaces(t *testing.T) {
	s := newTimeoutScheduler()
	defer s.Stop()

	var first, second atomic.Int32
	s.Schedule("h1", 20*time.Millisecond, func() { first.Add(1) })
	s.Schedule("h1", 30*time.Millisecond, func() { second.Add(1) })
	if s.Len() != 1 {
		t.Fatalf("expected one timer, got %d", s.Len())
	}

	time.Sleep(100 * time.Millisecond)
	if first.Load() != 0 || second.Load() != 1 {
		t.Fatalf("first=%d second=%d", first.Load(), second.Load())
	}
}

func TestScheduler_StopRefusesNewTimers(t *testing.T) {
	s := newTimeoutScheduler()
	var fired atomic.Int32
	s.Schedule("h1", 20*time.Millisecond, func() { fired.Add(1) })
	s.Stop()
	s.Schedule("h2", time.Millisecond, func() { fired.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if fired.Load() != 0 || s.Len() != 0 {
		t.Fatalf("fired=%d len=%d", fired.Load(), s.Len())
	}
}
