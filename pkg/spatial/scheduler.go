package spatial

import (
	"sync"
	"time"

	"github.com/pion/logging"
)

// UpdateScheduler runs a tick function at a fixed interval on one
// goroutine, so ticks never overlap. A tick that panics is logged and the
// schedule continues.
type UpdateScheduler struct {
	interval time.Duration
	tick     func()
	log      logging.LeveledLogger

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool
}

func newUpdateScheduler(interval time.Duration, tick func(), log logging.LeveledLogger) *UpdateScheduler {
	return &UpdateScheduler{interval: interval, tick: tick, log: log}
}

// Start launches the loop. Starting a running scheduler does nothing.
func (u *UpdateScheduler) Start() {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.running {
		return
	}
	u.running = true
	u.stop = make(chan struct{})
	u.done = make(chan struct{})
	go u.loop(u.stop, u.done)
}

func (u *UpdateScheduler) loop(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			u.safeTick()
		}
	}
}

func (u *UpdateScheduler) safeTick() {
	defer func() {
		if r := recover(); r != nil {
			u.log.Errorf("tick: %v", panicError("tick", r))
		}
	}()
	u.tick()
}

// Stop ends the loop and waits for an in-flight tick to return.
func (u *UpdateScheduler) Stop() {
	u.mu.Lock()
	if !u.running {
		u.mu.Unlock()
		return
	}
	u.running = false
	stop, done := u.stop, u.done
	u.mu.Unlock()

	close(stop)
	<-done
}

// Running reports whether the loop is active.
func (u *UpdateScheduler) Running() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.running
}
