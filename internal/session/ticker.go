package session

import (
	"sync"
	"time"
)

// TickInterval is the countdown poll resolution.
const TickInterval = time.Second

// PhaseTicker is a cancellable scheduled task that polls the wall clock
// and fires a time-up callback once the phase deadline passes. One
// ticker exists per active section phase; it must be stopped on phase
// change and on teardown so no time leaks into a stale attempt.
type PhaseTicker struct {
	stop     chan struct{}
	stopOnce sync.Once
}

// StartPhaseTicker begins polling every TickInterval, comparing now
// against deadline. onTimeUp runs at most once, on the ticker goroutine,
// after which the ticker exits on its own.
func StartPhaseTicker(deadline time.Time, now func() time.Time, onTimeUp func()) *PhaseTicker {
	t := &PhaseTicker{stop: make(chan struct{})}

	go func() {
		ticker := time.NewTicker(TickInterval)
		defer ticker.Stop()

		for {
			select {
			case <-t.stop:
				return
			case <-ticker.C:
				if !now().Before(deadline) {
					onTimeUp()
					return
				}
			}
		}
	}()

	return t
}

// Stop cancels the ticker. Safe to call multiple times and after the
// callback has fired.
func (t *PhaseTicker) Stop() {
	t.stopOnce.Do(func() { close(t.stop) })
}
