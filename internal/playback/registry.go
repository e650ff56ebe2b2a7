package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/glizzus/jukebox/internal/clock"
	"github.com/glizzus/jukebox/internal/generator"
	"github.com/glizzus/jukebox/internal/notify"
	"github.com/glizzus/jukebox/internal/queue"
)

const eventBuffer = 64

type RegistryConfig struct {
	Transport   Transport
	Notifier    notify.Notifier
	NewPipeline func() Pipeline

	TickPeriod       time.Duration
	PreloadThreshold time.Duration
	NewTicker        clock.NewTickerFunc
	IDs              generator.Generator[string]
}

// Registry owns one Session per guild. No entry means not connected.
type Registry struct {
	cfg    RegistryConfig
	events chan TrackEnded

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool

	joinMu    sync.Mutex
	joinLocks map[string]*sync.Mutex
}

func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Notifier == nil {
		cfg.Notifier = notify.Log{}
	}
	return &Registry{
		cfg:       cfg,
		events:    make(chan TrackEnded, eventBuffer),
		sessions:  make(map[string]*Session),
		joinLocks: make(map[string]*sync.Mutex),
	}
}

func (r *Registry) joinLock(guildID string) *sync.Mutex {
	r.joinMu.Lock()
	defer r.joinMu.Unlock()

	lk, ok := r.joinLocks[guildID]
	if !ok {
		lk = &sync.Mutex{}
		r.joinLocks[guildID] = lk
	}
	return lk
}

func (r *Registry) session(guildID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[guildID]
}

// remove deletes the entry only if it still points at sess.
func (r *Registry) remove(guildID string, sess *Session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sessions[guildID] != sess {
		return false
	}
	delete(r.sessions, guildID)
	return true
}

// Join connects the guild to a voice channel and installs a fresh Session.
// Joining the channel the guild is already in is a no-op. Joining another
// channel disposes the existing Session first. Concurrent joins for one guild
// are serialized.
func (r *Registry) Join(ctx context.Context, guildID, channelID, commandChannelID string) (JoinResult, error) {
	lk := r.joinLock(guildID)
	lk.Lock()
	defer lk.Unlock()

	if r.isClosed() {
		return JoinFailed, ErrRegistryClosed
	}

	if existing := r.session(guildID); existing != nil {
		if existing.ChannelID() == channelID {
			return JoinSameChannel, nil
		}
		if r.remove(guildID, existing) {
			if err := existing.Close(); err != nil && !errors.Is(err, ErrAlreadyDisposed) {
				slog.Warn("failed to dispose previous session", "guildID", guildID, "error", err)
			}
		}
	}

	conn, err := r.cfg.Transport.Connect(ctx, guildID, channelID)
	switch {
	case errors.Is(err, ErrChannelInvalid):
		return JoinNonVoiceChannel, nil
	case errors.Is(err, ErrNotPermitted):
		return JoinInsufficientPermissions, nil
	case errors.Is(err, ErrCannotUnsuppress):
		return JoinCannotUnsuppress, nil
	case err != nil:
		return JoinFailed, fmt.Errorf("unable to join the voice channel: %w", err)
	}

	sess := NewSession(SessionConfig{
		GuildID:          guildID,
		CommandChannelID: commandChannelID,
		Connection:       conn,
		Pipeline:         r.cfg.NewPipeline(),
		Notifier:         r.cfg.Notifier,
		TickPeriod:       r.cfg.TickPeriod,
		PreloadThreshold: r.cfg.PreloadThreshold,
		NewTicker:        r.cfg.NewTicker,
		IDs:              r.cfg.IDs,
		Events:           r.events,
	})

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		// Close ran while connecting and will not see this session.
		if err := sess.Close(); err != nil {
			slog.Warn("failed to dispose session after shutdown", "guildID", guildID, "error", err)
		}
		return JoinFailed, ErrRegistryClosed
	}
	r.sessions[guildID] = sess
	r.mu.Unlock()

	slog.Info("joined voice channel", "guildID", guildID, "channelID", channelID)
	return JoinSucceeded, nil
}

// Enqueue appends a loader to the guild's queue. It reports false, and does
// nothing, when the guild has no session.
func (r *Registry) Enqueue(guildID string, load queue.LoadFunc) bool {
	sess := r.session(guildID)
	if sess == nil {
		return false
	}
	return sess.Enqueue(load) == nil
}

func (r *Registry) Play(ctx context.Context, guildID string) (PlayResult, error) {
	sess := r.session(guildID)
	if sess == nil {
		return PlayNotConnected, nil
	}
	result, err := sess.Play(ctx)
	if errors.Is(err, ErrSessionDisposed) {
		return PlayNotConnected, nil
	}
	return result, err
}

func (r *Registry) Pause(guildID string) (PauseResult, error) {
	sess := r.session(guildID)
	if sess == nil {
		return PauseNotConnected, nil
	}
	result, err := sess.Pause()
	if errors.Is(err, ErrSessionDisposed) {
		return PauseNotConnected, nil
	}
	return result, err
}

func (r *Registry) Resume(ctx context.Context, guildID string) (PlayResult, error) {
	sess := r.session(guildID)
	if sess == nil {
		return PlayNotConnected, nil
	}
	result, err := sess.Resume(ctx)
	if errors.Is(err, ErrSessionDisposed) {
		return PlayNotConnected, nil
	}
	return result, err
}

func (r *Registry) Skip(ctx context.Context, guildID string) (PlayResult, error) {
	sess := r.session(guildID)
	if sess == nil {
		return PlayNotConnected, nil
	}
	result, err := sess.Skip(ctx)
	if errors.Is(err, ErrSessionDisposed) {
		return PlayNotConnected, nil
	}
	return result, err
}

func (r *Registry) NowPlaying(guildID string) (NowPlaying, bool) {
	sess := r.session(guildID)
	if sess == nil {
		return NowPlaying{}, false
	}
	return sess.NowPlaying()
}

// GetNowPlayingTitle returns the current track title, or "" when nothing is
// playing.
func (r *Registry) GetNowPlayingTitle(guildID string) string {
	np, _ := r.NowPlaying(guildID)
	return np.Title
}

func (r *Registry) QueueLength(guildID string) int {
	sess := r.session(guildID)
	if sess == nil {
		return 0
	}
	return sess.QueueLength()
}

// ChannelID returns the voice channel the guild is connected to.
func (r *Registry) ChannelID(guildID string) (string, bool) {
	sess := r.session(guildID)
	if sess == nil {
		return "", false
	}
	return sess.ChannelID(), true
}

// IsInCurrentChannel reports whether channelID is the guild's connected
// voice channel.
func (r *Registry) IsInCurrentChannel(guildID, channelID string) bool {
	current, ok := r.ChannelID(guildID)
	return ok && channelID != "" && current == channelID
}

// Leave disposes the guild's session. It reports false if there was none.
func (r *Registry) Leave(guildID string) bool {
	lk := r.joinLock(guildID)
	lk.Lock()
	defer lk.Unlock()

	sess := r.session(guildID)
	if sess == nil || !r.remove(guildID, sess) {
		return false
	}
	if err := sess.Close(); err != nil {
		slog.Warn("failed to dispose session", "guildID", guildID, "error", err)
	}
	return true
}

func (r *Registry) isClosed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.closed
}

// Close disposes every session. Joins that finish afterwards fail with
// ErrRegistryClosed.
func (r *Registry) Close() error {
	r.mu.Lock()
	r.closed = true
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	var errs []error
	for guildID, sess := range sessions {
		if err := sess.Close(); err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", guildID, err))
		}
	}
	return errors.Join(errs...)
}

// Run auto-advances queues: every TrackEnded from a still-registered session
// is answered with Play on that guild. It returns when ctx is done.
func (r *Registry) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-r.events:
			wg.Add(1)
			go func() {
				defer wg.Done()
				r.advance(ctx, ev)
			}()
		}
	}
}

func (r *Registry) advance(ctx context.Context, ev TrackEnded) {
	sess := r.session(ev.GuildID)
	if sess == nil || sess != ev.session {
		slog.Debug("dropping track end from a replaced session", "guildID", ev.GuildID)
		return
	}

	result, err := sess.Play(ctx)
	if errors.Is(err, ErrSessionDisposed) {
		return
	}
	if err != nil {
		slog.Error("failed to advance queue", "guildID", ev.GuildID, "error", err)
		sess.notify(ctx, PlayFailed.String(), PlayFailed.Message(""))
		return
	}

	switch result {
	case PlayNowPlaying, PlayQueueEmpty:
		np, _ := sess.NowPlaying()
		sess.notify(ctx, result.String(), result.Message(np.Title))
	}
}
