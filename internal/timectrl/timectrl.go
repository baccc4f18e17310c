// Package timectrl drives simulation time in fixed steps.
package timectrl

import (
	"context"
	"sync"
	"time"
)

// Clock gives access to simulation time.
type Clock interface {
	Now() time.Time
}

// Mode describes how the Controller advances simulation time.
type Mode int

const (
	// RealTime paces ticks against the wall clock, scaled by Speedup.
	RealTime Mode = iota
	// Accelerated runs ticks back to back.
	Accelerated
)

// Listener is called after every tick with the new simulation time and the
// tick length.
type Listener func(now time.Time, dt time.Duration)

// Controller advances simulation time by Tick and notifies listeners.
type Controller struct {
	mu      sync.RWMutex
	start   time.Time
	tick    time.Duration
	mode    Mode
	speedup float64

	current time.Time
	ticks   int

	listeners []Listener
}

var _ Clock = (*Controller)(nil)

// New constructs a controller at start.
func New(start time.Time, tick time.Duration, mode Mode) *Controller {
	return &Controller{
		start:   start,
		tick:    tick,
		mode:    mode,
		speedup: 1,
		current: start,
	}
}

// SetSpeedup scales real-time pacing: 60 runs a simulated minute per wall
// second. Values <= 0 are ignored.
func (c *Controller) SetSpeedup(f float64) {
	if f <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speedup = f
}

// Now returns the current simulation time.
func (c *Controller) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

// SetTime moves simulation time without notifying listeners.
func (c *Controller) SetTime(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = t
}

// Elapsed returns the simulated time since start.
func (c *Controller) Elapsed() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current.Sub(c.start)
}

// Ticks returns the number of ticks run so far.
func (c *Controller) Ticks() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ticks
}

// AddListener registers fn to run on every tick.
func (c *Controller) AddListener(fn Listener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// Step advances one tick and runs the listeners on the caller's goroutine.
func (c *Controller) Step() time.Time {
	c.mu.Lock()
	c.current = c.current.Add(c.tick)
	c.ticks++
	now := c.current
	listeners := c.listeners
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(now, c.tick)
	}
	return now
}

// Run ticks until duration of simulated time has passed, ctx is cancelled,
// or stop reports true after a tick. A duration <= 0 runs until cancelled or
// stopped. It returns ctx.Err() on cancellation.
func (c *Controller) Run(ctx context.Context, duration time.Duration, stop func() bool) error {
	var ticker *time.Ticker
	if c.mode == RealTime {
		c.mu.RLock()
		interval := time.Duration(float64(c.tick) / c.speedup)
		c.mu.RUnlock()
		if interval <= 0 {
			interval = time.Nanosecond
		}
		ticker = time.NewTicker(interval)
		defer ticker.Stop()
	}

	for {
		if duration > 0 && c.Elapsed() >= duration {
			return nil
		}
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		c.Step()
		if stop != nil && stop() {
			return nil
		}
	}
}

// ParseMode accepts "realtime" and "accelerated".
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "realtime", "real-time", "":
		return RealTime, true
	case "accelerated", "fast":
		return Accelerated, true
	default:
		return 0, false
	}
}
