package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glizzus/jukebox/internal/clock"
	"github.com/glizzus/jukebox/internal/generator"
	"github.com/glizzus/jukebox/internal/notify"
	"github.com/glizzus/jukebox/internal/queue"
)

const (
	DefaultTickPeriod       = time.Second
	DefaultPreloadThreshold = 10 * time.Second
)

// SessionConfig wires a Session to its collaborators. Connection and Pipeline
// are owned by the Session from then on and released by Close.
type SessionConfig struct {
	GuildID          string
	CommandChannelID string
	Connection       Connection
	Pipeline         Pipeline
	Notifier         notify.Notifier

	TickPeriod       time.Duration
	PreloadThreshold time.Duration
	NewTicker        clock.NewTickerFunc
	IDs              generator.Generator[string]

	// Events receives a TrackEnded for every finished track. May be nil.
	Events chan<- TrackEnded
}

// TrackEnded is sent from a Session when its current track finished, either
// because the clock ran out or because a stream failed (Err is set).
type TrackEnded struct {
	GuildID string
	Title   string
	Err     error

	session *Session
}

// NowPlaying describes the current track.
type NowPlaying struct {
	Title     string
	Requester string
	Duration  time.Duration
	Remaining time.Duration
	Paused    bool
}

type Session struct {
	guildID          string
	commandChannelID string
	conn             Connection
	pipeline         Pipeline
	notifier         notify.Notifier
	ids              generator.Generator[string]
	events           chan<- TrackEnded
	tickPeriod       time.Duration

	queue *queue.Queue
	clock *clock.PlaybackClock

	// ctx lives as long as the session; every attempt scope derives from it.
	ctx        context.Context
	stop       context.CancelFunc
	tickerDone chan struct{}

	mu         sync.Mutex
	state      State
	current    *attempt
	sourceDone <-chan struct{}

	// published mirrors state for readers that must not wait behind a Play
	// that is loading a track under mu.
	published atomic.Int32
}

func NewSession(cfg SessionConfig) *Session {
	if cfg.TickPeriod <= 0 {
		cfg.TickPeriod = DefaultTickPeriod
	}
	if cfg.PreloadThreshold <= 0 {
		cfg.PreloadThreshold = DefaultPreloadThreshold
	}
	if cfg.NewTicker == nil {
		cfg.NewTicker = clock.NewTicker
	}
	if cfg.IDs == nil {
		cfg.IDs = &generator.UUIDV7Generator{}
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Log{}
	}

	ctx, stop := context.WithCancel(context.Background())
	s := &Session{
		guildID:          cfg.GuildID,
		commandChannelID: cfg.CommandChannelID,
		conn:             cfg.Connection,
		pipeline:         cfg.Pipeline,
		notifier:         cfg.Notifier,
		ids:              cfg.IDs,
		events:           cfg.Events,
		tickPeriod:       cfg.TickPeriod,
		queue:            queue.New(),
		clock:            clock.NewPlaybackClock(cfg.PreloadThreshold),
		ctx:              ctx,
		stop:             stop,
		tickerDone:       make(chan struct{}),
		state:            StateIdle,
	}

	// A failed spawn is retried by the first Play.
	if err := s.pipeline.Start(); err != nil {
		slog.Error("failed to start transcoder", "guildID", s.guildID, "error", err)
	}

	go s.runTicker(cfg.NewTicker(cfg.TickPeriod))
	return s
}

func (s *Session) GuildID() string          { return s.guildID }
func (s *Session) CommandChannelID() string { return s.commandChannelID }
func (s *Session) ChannelID() string        { return s.conn.ChannelID() }

func (s *Session) State() State {
	return State(s.published.Load())
}

func (s *Session) setStateLocked(state State) {
	s.state = state
	s.published.Store(int32(state))
}

// Enqueue appends a loader to the queue. The loader does not run until its
// entry becomes the head of the queue or is preloaded.
func (s *Session) Enqueue(load queue.LoadFunc) error {
	if s.State() == StateDisposed {
		return ErrSessionDisposed
	}
	s.queue.Enqueue(load)
	return nil
}

func (s *Session) QueueLength() int {
	return s.queue.Len()
}

// NowPlaying reports the current track, if any.
func (s *Session) NowPlaying() (NowPlaying, bool) {
	state := s.State()
	if state != StatePlaying && state != StatePaused {
		return NowPlaying{}, false
	}
	track := s.queue.Current()
	if track == nil {
		return NowPlaying{}, false
	}
	return NowPlaying{
		Title:     track.Title,
		Requester: track.Requester,
		Duration:  track.Duration,
		Remaining: s.clock.Remaining(),
		Paused:    state == StatePaused,
	}, true
}

// Play starts the next queued track, or resumes a paused one.
func (s *Session) Play(ctx context.Context) (PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playLocked(ctx)
}

func (s *Session) playLocked(ctx context.Context) (PlayResult, error) {
	switch s.state {
	case StateDisposed:
		return PlayFailed, ErrSessionDisposed
	case StatePlaying:
		return PlayAlreadyPlaying, nil
	case StatePaused:
		if track := s.queue.Current(); track != nil {
			s.startAttemptLocked(track)
			s.setStateLocked(StatePlaying)
			slog.Info("resumed", "guildID", s.guildID, "title", track.Title)
			return PlayResumed, nil
		}
		s.setStateLocked(StateIdle)
	}

	if err := s.pipeline.Start(); err != nil {
		return PlayFailed, fmt.Errorf("unable to start transcoder: %w", err)
	}

	for {
		track, err := s.queue.Next(ctx)
		if errors.Is(err, queue.ErrQueueEmpty) {
			return PlayQueueEmpty, nil
		}
		if err != nil {
			slog.Warn("skipping track that failed to load", "guildID", s.guildID, "error", err)
			s.notify(ctx, "LoadFailed", "Couldn't load the next track, skipping it.")
			continue
		}

		s.clock.Start(track.Duration, track.Source)
		s.startAttemptLocked(track)
		s.setStateLocked(StatePlaying)
		slog.Info(
			"now playing",
			"guildID", s.guildID,
			"title", track.Title,
			"duration", track.Duration,
			"requester", track.Requester,
		)
		return PlayNowPlaying, nil
	}
}

func (s *Session) startAttemptLocked(track *queue.Track) {
	id, err := s.ids.Next()
	if err != nil {
		id = fmt.Sprintf("attempt-%d", time.Now().UnixNano())
	}

	var source io.Reader = strings.NewReader("")
	if track.Source != nil {
		source = track.Source
	}

	ctx, cancel := context.WithCancel(s.ctx)
	a := &attempt{
		id:         id,
		ctx:        ctx,
		cancel:     cancel,
		source:     source,
		sink:       s.pipeline.Sink(),
		pcm:        s.pipeline.Source(),
		out:        s.conn.Sink(),
		timed:      s.clock.Timed(),
		after:      s.sourceDone,
		sourceDone: make(chan struct{}),
	}
	s.current = a
	s.sourceDone = a.sourceDone

	go s.runAttempt(a)
}

func (s *Session) cancelAttemptLocked() {
	if s.current != nil {
		s.current.cancel()
		s.current = nil
	}
}

// Pause stops the copy loops but keeps the track, queue and clock position.
func (s *Session) Pause() (PauseResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateDisposed:
		return PauseNotConnected, ErrSessionDisposed
	case StatePaused:
		return PauseAlreadyPaused, nil
	case StateIdle:
		return PauseNothingPlaying, nil
	}

	s.cancelAttemptLocked()
	s.setStateLocked(StatePaused)
	slog.Info("paused", "guildID", s.guildID, "remaining", s.clock.Remaining())
	return PausePaused, nil
}

// Resume restarts the copy loops of a paused track from where they stopped.
func (s *Session) Resume(ctx context.Context) (PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateDisposed:
		return PlayFailed, ErrSessionDisposed
	case StatePlaying:
		return PlayAlreadyPlaying, nil
	case StateIdle:
		return PlayNothingPaused, nil
	}
	return s.playLocked(ctx)
}

// Skip abandons the current track, if any, and plays the next one.
func (s *Session) Skip(ctx context.Context) (PlayResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisposed {
		return PlayFailed, ErrSessionDisposed
	}
	if s.state != StateIdle {
		slog.Info("skipping track", "guildID", s.guildID)
		s.finishTrackLocked()
	}
	return s.playLocked(ctx)
}

// RestartPipeline replaces the transcoder process. It is the recovery path
// after the transcoder failed to spawn.
func (s *Session) RestartPipeline() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateDisposed {
		return ErrSessionDisposed
	}
	s.cancelAttemptLocked()
	if s.state == StatePlaying {
		s.setStateLocked(StatePaused)
	}
	return s.pipeline.Restart()
}

// finishTrackLocked tears the current track down and leaves the session idle.
func (s *Session) finishTrackLocked() {
	s.cancelAttemptLocked()
	if err := s.pipeline.Restart(); err != nil {
		slog.Error("failed to restart transcoder", "guildID", s.guildID, "error", err)
	}
	// A partial frame of this track must not lead into the next one.
	if r, ok := s.conn.Sink().(resetter); ok {
		r.Reset()
	}
	s.queue.Finish()
	s.clock.Clear()
	s.sourceDone = nil
	s.setStateLocked(StateIdle)
}

// endTrack finishes the track played by the given attempt. Calls for an
// attempt that is no longer current are ignored.
func (s *Session) endTrack(attemptID string, cause error) {
	s.mu.Lock()
	if s.state != StatePlaying || s.current == nil || s.current.id != attemptID {
		s.mu.Unlock()
		return
	}
	var title string
	if track := s.queue.Current(); track != nil {
		title = track.Title
	}
	s.finishTrackLocked()
	s.mu.Unlock()

	if cause != nil {
		s.notify(s.ctx, "StreamFailed", fmt.Sprintf("Playback of %s stopped unexpectedly.", title))
	}
	s.emit(TrackEnded{GuildID: s.guildID, Title: title, Err: cause, session: s})
}

func (s *Session) emit(ev TrackEnded) {
	if s.events == nil {
		return
	}
	select {
	case s.events <- ev:
	case <-s.ctx.Done():
	}
}

func (s *Session) notify(ctx context.Context, code, message string) {
	err := s.notifier.Notify(ctx, notify.Event{
		GuildID:   s.guildID,
		ChannelID: s.commandChannelID,
		Code:      code,
		Message:   message,
		Time:      time.Now(),
	})
	if err != nil {
		slog.Warn("failed to send notification", "guildID", s.guildID, "code", code, "error", err)
	}
}

// Close disposes the session: it stops playback and the ticker, kills the
// transcoder and disconnects from voice. Closing twice fails with
// ErrAlreadyDisposed.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.state == StateDisposed {
		s.mu.Unlock()
		return ErrAlreadyDisposed
	}
	s.setStateLocked(StateDisposed)
	s.cancelAttemptLocked()
	s.stop()
	s.mu.Unlock()

	<-s.tickerDone

	var errs []error
	if err := s.pipeline.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close transcoder: %w", err))
	}
	if err := s.conn.Disconnect(); err != nil {
		errs = append(errs, fmt.Errorf("failed to disconnect: %w", err))
	}
	s.queue.Clear()

	slog.Info("session disposed", "guildID", s.guildID)
	return errors.Join(errs...)
}
