// Package clock tracks how much of the current track is left to play.
//
// The estimate is driven by a periodic tick and cross-checked against how far
// the remote source has been read. The byte-based half assumes a constant
// bytes-per-millisecond rate, so it drifts for variable-bitrate sources; it is
// an approximation, not a frame-accurate position.
package clock

import (
	"sync"
	"time"

	"github.com/glizzus/jukebox/internal/audio"
)

// TickResult is what one tick decided.
type TickResult struct {
	Remaining time.Duration
	// Preload is true while the remaining time is below the preload
	// threshold and MarkPreloaded has not been called for this track.
	Preload bool
	// Ended is true on the single tick where the remaining time reaches zero.
	Ended bool
}

type PlaybackClock struct {
	mu sync.Mutex

	preloadThreshold time.Duration

	active    bool
	duration  time.Duration
	remaining time.Duration
	source    audio.Source
	preloaded bool
}

func NewPlaybackClock(preloadThreshold time.Duration) *PlaybackClock {
	return &PlaybackClock{preloadThreshold: preloadThreshold}
}

// Start resets the clock for a new track. A non-positive duration leaves the
// clock inert: it never preloads or ends on its own.
func (c *PlaybackClock) Start(duration time.Duration, source audio.Source) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = duration > 0
	c.duration = duration
	c.remaining = duration
	c.source = source
	c.preloaded = false
}

// Clear forgets the current track.
func (c *PlaybackClock) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = false
	c.duration = 0
	c.remaining = 0
	c.source = nil
	c.preloaded = false
}

// Timed reports whether the clock is counting down a track.
func (c *PlaybackClock) Timed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

func (c *PlaybackClock) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// MarkPreloaded latches the preload for the current track.
func (c *PlaybackClock) MarkPreloaded() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.preloaded = true
}

// Tick advances the clock by one period of playback. The remaining time never
// increases; it only holds still when the source has fallen behind.
func (c *PlaybackClock) Tick(period time.Duration) TickResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		return TickResult{Remaining: c.remaining}
	}

	next := c.remaining - period
	if estimate, ok := c.byteEstimate(); ok && estimate > next {
		next = min(c.remaining, estimate)
	}
	c.remaining = max(next, 0)

	var result TickResult
	result.Remaining = c.remaining

	if c.remaining < c.preloadThreshold && !c.preloaded {
		result.Preload = true
	}

	if c.remaining <= 0 {
		c.active = false
		result.Ended = true
	}
	return result
}

// byteEstimate derives the remaining time from the source read position.
// It needs both a known source size and a known duration.
func (c *PlaybackClock) byteEstimate() (time.Duration, bool) {
	if c.source == nil {
		return 0, false
	}
	size, known := c.source.Size()
	if !known || size <= 0 {
		return 0, false
	}

	bytesPerMs := float64(size) / float64(c.duration.Milliseconds())
	elapsedMs := float64(c.source.Position()) / bytesPerMs
	return c.duration - time.Duration(elapsedMs)*time.Millisecond, true
}
