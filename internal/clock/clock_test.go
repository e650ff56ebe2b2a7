package clock_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/glizzus/jukebox/internal/clock"
)

type fakeSource struct {
	size int64
	pos  atomic.Int64
}

func (f *fakeSource) Read(p []byte) (int, error) { return 0, nil }
func (f *fakeSource) Close() error               { return nil }
func (f *fakeSource) Size() (int64, bool)        { return f.size, f.size >= 0 }
func (f *fakeSource) Position() int64            { return f.pos.Load() }

func TestTickReachesZeroWithinDuration(t *testing.T) {
	tc := []struct {
		name     string
		duration time.Duration
		want     int
	}{
		{name: "whole seconds", duration: 5 * time.Second, want: 5},
		{name: "fractional seconds", duration: 4500 * time.Millisecond, want: 5},
		{name: "single tick", duration: time.Second, want: 1},
	}

	for _, test := range tc {
		t.Run(test.name, func(t *testing.T) {
			c := clock.NewPlaybackClock(10 * time.Second)
			c.Start(test.duration, nil)

			ended := 0
			endedAt := 0
			for i := 1; i <= test.want+3; i++ {
				if c.Tick(time.Second).Ended {
					ended++
					endedAt = i
				}
			}
			if ended != 1 {
				t.Fatalf("expected exactly one end, got %d", ended)
			}
			if endedAt != test.want {
				t.Errorf("expected end on tick %d, got %d", test.want, endedAt)
			}
		})
	}
}

func TestTickMonotonic(t *testing.T) {
	src := &fakeSource{size: 1000}
	c := clock.NewPlaybackClock(0)
	c.Start(10*time.Second, src)

	prev := c.Remaining()
	positions := []int64{100, 50, 400, 400, 900, 1000, 1000}
	for _, pos := range positions {
		src.pos.Store(pos)
		got := c.Tick(time.Second).Remaining
		if got > prev {
			t.Fatalf("remaining increased from %v to %v", prev, got)
		}
		prev = got
	}
}

func TestTickHoldsWhenSourceStalls(t *testing.T) {
	src := &fakeSource{size: 10000}
	c := clock.NewPlaybackClock(0)
	c.Start(10*time.Second, src)

	// 20% read: the byte estimate says 8s are left.
	src.pos.Store(2000)
	for range 5 {
		c.Tick(time.Second)
	}
	if got := c.Remaining(); got != 8*time.Second {
		t.Errorf("expected clock to hold at 8s while stalled, got %v", got)
	}

	src.pos.Store(10000)
	if got := c.Tick(time.Second).Remaining; got != 7*time.Second {
		t.Errorf("expected clock to resume counting once read, got %v", got)
	}
}

func TestPreloadUntilMarked(t *testing.T) {
	c := clock.NewPlaybackClock(3 * time.Second)
	c.Start(5*time.Second, nil)

	var preloads []bool
	for range 4 {
		r := c.Tick(time.Second)
		preloads = append(preloads, r.Preload)
		if r.Remaining == 2*time.Second {
			c.MarkPreloaded()
		}
	}

	want := []bool{false, false, true, false}
	for i := range want {
		if preloads[i] != want[i] {
			t.Errorf("tick %d: expected preload=%v, got %v", i+1, want[i], preloads[i])
		}
	}
}

func TestInertClock(t *testing.T) {
	c := clock.NewPlaybackClock(10 * time.Second)
	c.Start(0, nil)

	if c.Timed() {
		t.Errorf("expected clock without duration to be inert")
	}
	r := c.Tick(time.Second)
	if r.Ended || r.Preload {
		t.Errorf("inert clock should not preload or end: %+v", r)
	}
}

func TestManualTicker(t *testing.T) {
	m := clock.NewManual()
	ticker := m.Func()(time.Hour)

	done := make(chan time.Time)
	go func() {
		done <- <-ticker.C()
	}()

	if !m.Tick() {
		t.Fatalf("expected tick to be delivered")
	}
	<-done

	ticker.Stop()
	ticker.Stop()
	if m.Tick() {
		t.Errorf("expected tick after stop to be dropped")
	}
}
