package clock

import (
	"sync"
	"time"
)

// Ticker delivers ticks on C until stopped.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// NewTickerFunc builds a Ticker with the given period.
type NewTickerFunc func(period time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

// NewTicker returns a Ticker backed by time.Ticker.
func NewTicker(period time.Duration) Ticker {
	return &realTicker{t: time.NewTicker(period)}
}

func (r *realTicker) C() <-chan time.Time { return r.t.C }
func (r *realTicker) Stop()               { r.t.Stop() }

// Manual is a Ticker that only fires when Tick is called. The channel is
// unbuffered, so Tick returns once the consumer has received the tick.
type Manual struct {
	c       chan time.Time
	stopped chan struct{}
	stop    sync.Once
	now     time.Time
}

func NewManual() *Manual {
	return &Manual{
		c:       make(chan time.Time),
		stopped: make(chan struct{}),
		now:     time.Unix(0, 0),
	}
}

// Func returns a NewTickerFunc that always hands out m, ignoring the period.
func (m *Manual) Func() NewTickerFunc {
	return func(time.Duration) Ticker { return m }
}

// Tick delivers one tick. It reports false if the ticker was stopped first.
func (m *Manual) Tick() bool {
	m.now = m.now.Add(time.Second)
	select {
	case m.c <- m.now:
		return true
	case <-m.stopped:
		return false
	}
}

func (m *Manual) C() <-chan time.Time { return m.c }

func (m *Manual) Stop() {
	m.stop.Do(func() { close(m.stopped) })
}
