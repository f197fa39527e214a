// Package clock implements the master time source for playback: a
// monotonic, seekable, loop-capable clock driven by the orchestration
// thread. It is read and written only by the Player's render loop, so no
// locking is required (spec.md §4.2).
package clock

import "time"

// nowFunc is overridable in tests to avoid depending on wall-clock timing.
type nowFunc func() time.Time

// Clock is the master time source for a Player. It is not safe for
// concurrent use; callers confine it to a single goroutine.
type Clock struct {
	now nowFunc

	positionS   float64
	isPlaying   bool
	loopEnabled bool
	durationS   float64

	wallStart    time.Time
	wallPosition float64

	looped bool // set by Tick when a loop boundary was just crossed
}

// New creates a paused Clock at position 0.
func New() *Clock {
	return &Clock{now: time.Now}
}

// Tick computes the current position. While playing, position advances
// with wall-clock time from the last Play/Seek call; while paused, it
// returns the frozen position. If looping is enabled, duration is
// positive, and the computed time has reached the duration, the clock
// resets to 0 and Tick reports Looped() == true until the next call.
func (c *Clock) Tick() float64 {
	c.looped = false

	if !c.isPlaying {
		return c.positionS
	}

	elapsed := c.now().Sub(c.wallStart).Seconds()
	t := c.wallPosition + elapsed

	if c.loopEnabled && c.durationS > 0 && t >= c.durationS {
		c.wallPosition = 0
		c.wallStart = c.now()
		c.looped = true
		return 0
	}

	return t
}

// Looped reports whether the most recent Tick call crossed a loop
// boundary. The render loop consumes this to reset per-clip workers.
func (c *Clock) Looped() bool {
	return c.looped
}

// Play starts (or resumes) playback. If start is non-nil, position jumps
// there first; otherwise playback resumes from the current position.
func (c *Clock) Play(start *float64) {
	if start != nil {
		c.positionS = *start
	}
	c.wallPosition = c.positionS
	c.wallStart = c.now()
	c.isPlaying = true
}

// Pause freezes the clock at its current computed position.
func (c *Clock) Pause() {
	c.positionS = c.Tick()
	c.isPlaying = false
}

// Stop resets position to 0 and pauses.
func (c *Clock) Stop() {
	c.positionS = 0
	c.isPlaying = false
}

// Seek sets the clock's position to t, preserving play/pause state. If
// playing, the wall-clock anchor is reset so that time continues to
// advance monotonically from t.
func (c *Clock) Seek(t float64) {
	c.positionS = t
	if c.isPlaying {
		c.wallPosition = t
		c.wallStart = c.now()
	}
}

// SetLoop enables or disables looping at Duration.
func (c *Clock) SetLoop(enabled bool) {
	c.loopEnabled = enabled
}

// SetDuration sets the duration used for loop-boundary detection.
func (c *Clock) SetDuration(d float64) {
	c.durationS = d
}

// IsPlaying reports whether the clock is currently advancing.
func (c *Clock) IsPlaying() bool {
	return c.isPlaying
}

// Position returns the position last set by Play, Pause, Stop or Seek
// without advancing time (does not call the underlying now function);
// while playing it does not include time elapsed since then.
func (c *Clock) Position() float64 {
	return c.positionS
}
