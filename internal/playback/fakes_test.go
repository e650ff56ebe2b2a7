package playback_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glizzus/jukebox/internal/audio"
	"github.com/glizzus/jukebox/internal/clock"
	"github.com/glizzus/jukebox/internal/generator"
	"github.com/glizzus/jukebox/internal/notify"
	"github.com/glizzus/jukebox/internal/playback"
	"github.com/glizzus/jukebox/internal/queue"
)

var errKilled = errors.New("stub transcoder killed")

// stubPipeline stands in for the transcoder. Every instance emits pcm and
// then blocks until it is restarted or closed, unless drain is set.
//
// With passthrough set, an instance behaves like a transcoder whose pipes are
// full: its sink and source are the two ends of one unbuffered pipe, so a
// write to the sink blocks until the source is read.
type stubPipeline struct {
	mu          sync.Mutex
	startErr    error
	pcm         []byte
	drain       bool
	passthrough bool

	starts, restarts, closes int
	sinks, sources           int
	instance                 int
	running                  bool
	pr                       *io.PipeReader
	pw                       *io.PipeWriter
}

func (p *stubPipeline) spawnLocked() {
	p.instance++
	p.running = true
	p.pr, p.pw = io.Pipe()
}

func (p *stubPipeline) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	if p.running {
		return nil
	}
	p.starts++
	p.spawnLocked()
	return nil
}

func (p *stubPipeline) Restart() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restarts++
	if p.pw != nil {
		_ = p.pw.CloseWithError(errKilled)
	}
	p.running = false
	if p.startErr != nil {
		return p.startErr
	}
	p.spawnLocked()
	return nil
}

func (p *stubPipeline) Sink() io.WriteCloser {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sinks++
	if p.passthrough && p.pw != nil {
		return p.pw
	}
	return nopWriteCloser{}
}

func (p *stubPipeline) Source() io.Reader {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sources++
	if p.passthrough && p.pr != nil {
		return p.pr
	}
	if p.drain || p.pr == nil {
		return bytes.NewReader(p.pcm)
	}
	return io.MultiReader(bytes.NewReader(p.pcm), p.pr)
}

func (p *stubPipeline) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *stubPipeline) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closes++
	if p.pw != nil {
		_ = p.pw.CloseWithError(errKilled)
	}
	p.running = false
	return nil
}

func (p *stubPipeline) counts() (instance, restarts, closes, sources int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.instance, p.restarts, p.closes, p.sources
}

func (p *stubPipeline) setStartErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.startErr = err
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(b []byte) (int, error) { return len(b), nil }
func (nopWriteCloser) Close() error                { return nil }

type fakeConn struct {
	channelID string
	writeErr  error

	mu           sync.Mutex
	written      int
	resets       int
	disconnects  int
	disconnected bool
}

func (c *fakeConn) ChannelID() string { return c.channelID }
func (c *fakeConn) Sink() io.Writer   { return c }

func (c *fakeConn) Write(b []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return 0, c.writeErr
	}
	c.written += len(b)
	return len(b), nil
}

// Reset mirrors the partial frame reset of the real voice sink.
func (c *fakeConn) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
}

func (c *fakeConn) writtenBytes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.written
}

func (c *fakeConn) resetCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resets
}

func (c *fakeConn) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disconnects++
	c.disconnected = true
	return nil
}

func (c *fakeConn) disconnectCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disconnects
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return nil
}

func (n *recordingNotifier) codes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var codes []string
	for _, e := range n.events {
		codes = append(codes, e.Code)
	}
	return codes
}

func track(title string, duration time.Duration) queue.LoadFunc {
	return func(ctx context.Context) (*queue.Track, error) {
		return &queue.Track{Title: title, Duration: duration, Requester: "tester"}, nil
	}
}

// endlessSource is a track source of unknown size that never runs dry.
type endlessSource struct {
	pos atomic.Int64
}

func (e *endlessSource) Read(p []byte) (int, error) {
	clear(p)
	e.pos.Add(int64(len(p)))
	return len(p), nil
}

func (e *endlessSource) Close() error        { return nil }
func (e *endlessSource) Size() (int64, bool) { return 0, false }
func (e *endlessSource) Position() int64     { return e.pos.Load() }

var _ audio.Source = (*endlessSource)(nil)

// countingLoader wraps load and counts how often it runs.
func countingLoader(load queue.LoadFunc, calls *atomic.Int32) queue.LoadFunc {
	return func(ctx context.Context) (*queue.Track, error) {
		calls.Add(1)
		return load(ctx)
	}
}

type sessionFixture struct {
	session  *playback.Session
	pipeline *stubPipeline
	conn     *fakeConn
	ticker   *clock.Manual
	events   chan playback.TrackEnded
	notifier *recordingNotifier
}

func newSessionFixture(t *testing.T, p *stubPipeline) *sessionFixture {
	t.Helper()
	if p == nil {
		p = &stubPipeline{}
	}
	f := &sessionFixture{
		pipeline: p,
		conn:     &fakeConn{channelID: "voice-1"},
		ticker:   clock.NewManual(),
		events:   make(chan playback.TrackEnded, 8),
		notifier: &recordingNotifier{},
	}
	f.session = playback.NewSession(playback.SessionConfig{
		GuildID:          "guild-1",
		CommandChannelID: "text-1",
		Connection:       f.conn,
		Pipeline:         f.pipeline,
		Notifier:         f.notifier,
		NewTicker:        f.ticker.Func(),
		IDs:              &generator.SequenceGenerator{Prefix: "attempt"},
		Events:           f.events,
	})
	t.Cleanup(func() { _ = f.session.Close() })
	return f
}

// ticks delivers n ticks. Each Tick returns once the session received it, so
// all but the last are fully processed when ticks returns.
func (f *sessionFixture) ticks(t *testing.T, n int) {
	t.Helper()
	for range n {
		if !f.ticker.Tick() {
			t.Fatalf("ticker stopped")
		}
	}
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func never(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(100 * time.Millisecond)
	for time.Now().Before(deadline) {
		if cond() {
			t.Fatalf("unexpected: %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}
