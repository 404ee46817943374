// Package engine ties the window, camera, scene, and renderer together
// and drives the host loop: fixed-timestep simulation updates decoupled
// from the present cycle.
package engine

import (
	"time"

	"github.com/loov/hrtime"
)

// Time is a fixed-timestep accumulator. Wall-clock time banks into the
// accumulator on Tick; Step then consumes it in whole delta-sized
// simulation updates. A slow present cycle yields several updates, a
// fast one may yield none, so simulation speed never depends on frame
// rate.
type Time struct {
	delta       time.Duration
	accumulator time.Duration
	elapsed     time.Duration
	now         time.Duration
}

// NewTime creates a Time stepping at the given updates-per-second rate.
func NewTime(rate float64) *Time {
	return &Time{
		delta: time.Duration(float64(time.Second) / rate),
		now:   hrtime.Now(),
	}
}

// Tick samples the wall clock and banks the real time elapsed since the
// previous Tick.
func (t *Time) Tick() {
	now := hrtime.Now()
	t.Advance(now - t.now)
	t.now = now
}

// Advance banks an explicit frame time instead of sampling the clock.
func (t *Time) Advance(frameTime time.Duration) {
	t.accumulator += frameTime
}

// Step consumes the accumulator in fixed-size updates, invoking update
// once per step with the step size. It returns the number of updates
// performed. On return the accumulator holds strictly less than one
// delta.
func (t *Time) Step(update func(delta time.Duration)) int {
	steps := 0
	for t.accumulator >= t.delta {
		update(t.delta)

		t.accumulator -= t.delta
		t.elapsed += t.delta
		steps++
	}
	return steps
}

// Delta is the fixed simulation step size.
func (t *Time) Delta() time.Duration {
	return t.delta
}

// Elapsed is the total simulated time consumed so far.
func (t *Time) Elapsed() time.Duration {
	return t.elapsed
}
