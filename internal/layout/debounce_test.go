package layout

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerLastWriteWins(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	done := make(chan int, 4)

	for i := 0; i < 5; i++ {
		d.Schedule(func() {
			calls.Add(1)
			done <- i
		})
		time.Sleep(2 * time.Millisecond)
	}

	select {
	case got := <-done:
		if got != 4 {
			t.Fatalf("ran schedule %d, want the last one", got)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced function never ran")
	}

	time.Sleep(50 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Fatalf("ran %d times, want 1", n)
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var calls atomic.Int32
	d.Schedule(func() { calls.Add(1) })
	d.Stop()

	time.Sleep(40 * time.Millisecond)
	if n := calls.Load(); n != 0 {
		t.Fatalf("ran %d times after Stop", n)
	}
}

func TestSettlerChainsBothDelays(t *testing.T) {
	s := NewSettler(10*time.Millisecond, 30*time.Millisecond)
	start := time.Now()
	done := make(chan time.Duration, 1)

	s.Schedule(func() { done <- time.Since(start) })

	select {
	case elapsed := <-done:
		if elapsed < 40*time.Millisecond {
			t.Fatalf("ran after %v, want at least frame+delay", elapsed)
		}
	case <-time.After(time.Second):
		t.Fatal("settled function never ran")
	}
}

func TestSettlerRescheduleReplacesPending(t *testing.T) {
	s := NewSettler(5*time.Millisecond, 20*time.Millisecond)
	var first, second atomic.Int32
	done := make(chan struct{}, 1)

	s.Schedule(func() { first.Add(1) })
	time.Sleep(10 * time.Millisecond) // first is now in its settle stage
	s.Schedule(func() {
		second.Add(1)
		done <- struct{}{}
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("rescheduled function never ran")
	}
	time.Sleep(30 * time.Millisecond)
	if first.Load() != 0 || second.Load() != 1 {
		t.Fatalf("first ran %d, second ran %d", first.Load(), second.Load())
	}
}
