package session

import (
	"testing"
	"time"
)

func TestPhaseTickerFiresOnceAfterDeadline(t *testing.T) {
	clock := newFakeClock()
	deadline := clock.Now().Add(500 * time.Millisecond)
	fired := make(chan struct{}, 4)

	ticker := StartPhaseTicker(deadline, clock.Now, func() { fired <- struct{}{} })
	defer ticker.Stop()

	clock.Advance(time.Second)

	select {
	case <-fired:
	case <-time.After(3 * time.Second):
		t.Fatal("ticker did not fire after the deadline passed")
	}

	select {
	case <-fired:
		t.Fatal("ticker fired more than once")
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestPhaseTickerDoesNotFireBeforeDeadline(t *testing.T) {
	clock := newFakeClock()
	deadline := clock.Now().Add(time.Hour)
	fired := make(chan struct{}, 1)

	ticker := StartPhaseTicker(deadline, clock.Now, func() { fired <- struct{}{} })
	defer ticker.Stop()

	select {
	case <-fired:
		t.Fatal("ticker fired before the deadline")
	case <-time.After(1500 * time.Millisecond):
	}
}

func TestPhaseTickerStopCancels(t *testing.T) {
	clock := newFakeClock()
	deadline := clock.Now().Add(500 * time.Millisecond)
	fired := make(chan struct{}, 1)

	ticker := StartPhaseTicker(deadline, clock.Now, func() { fired <- struct{}{} })
	ticker.Stop()
	ticker.Stop() // repeated stop is safe

	clock.Advance(time.Minute)

	select {
	case <-fired:
		t.Fatal("stopped ticker still fired")
	case <-time.After(1500 * time.Millisecond):
	}
}
