package animator

import (
	"sync"
	"time"
)

// maxTickSeconds caps dt after stalls so a suspended process does not jump
// every blend to completion in one frame
const maxTickSeconds = 0.1

// Loop is a wall-clock tick source for an Engine. Tests drive Engine.Tick
// directly instead; the engine never depends on Loop.
type Loop struct {
	mu      sync.Mutex
	engine  *Engine
	rate    int
	stop    chan struct{}
	done    chan struct{}
	running bool
}

// NewLoop creates a tick source at the given frames per second.
// Non-positive rates fall back to 60.
func NewLoop(engine *Engine, rate int) *Loop {
	if rate <= 0 {
		rate = 60
	}
	return &Loop{engine: engine, rate: rate}
}

// Rate returns the configured ticks per second
func (l *Loop) Rate() int {
	return l.rate
}

// Start begins ticking in a background goroutine. Starting a running loop
// is a no-op.
func (l *Loop) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.running {
		return
	}
	l.running = true
	l.stop = make(chan struct{})
	l.done = make(chan struct{})

	go l.run(l.stop, l.done)
}

func (l *Loop) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(time.Second / time.Duration(l.rate))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			if dt > maxTickSeconds {
				dt = maxTickSeconds
			}
			l.engine.Tick(dt)
		}
	}
}

// Stop halts the loop and waits for the tick goroutine to exit. Stopping a
// stopped loop is a no-op.
func (l *Loop) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.running {
		return
	}
	close(l.stop)
	<-l.done
	l.running = false
}

// Running reports whether the loop is ticking
func (l *Loop) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}
