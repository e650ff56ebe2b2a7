package playback

import (
	"log/slog"

	"github.com/glizzus/jukebox/internal/clock"
)

// runTicker drives the clock for the whole life of the session. Ticks only do
// work while playing, so pausing freezes the clock without stopping the loop.
func (s *Session) runTicker(t clock.Ticker) {
	defer close(s.tickerDone)
	defer t.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-t.C():
			s.tick()
		}
	}
}

func (s *Session) tick() {
	s.mu.Lock()
	if s.state != StatePlaying {
		s.mu.Unlock()
		return
	}

	result := s.clock.Tick(s.tickPeriod)

	preload := result.Preload && s.queue.Len() > 0
	if preload {
		s.clock.MarkPreloaded()
	}

	var ended *TrackEnded
	if result.Ended {
		ev := TrackEnded{GuildID: s.guildID, session: s}
		if track := s.queue.Current(); track != nil {
			ev.Title = track.Title
		}
		s.finishTrackLocked()
		ended = &ev
	}
	s.mu.Unlock()

	if preload {
		go s.preload()
	}
	if ended != nil {
		slog.Info("track ended", "guildID", s.guildID, "title", ended.Title)
		s.emit(*ended)
	}
}

func (s *Session) preload() {
	ok, err := s.queue.Preload(s.ctx)
	if err != nil {
		slog.Warn("failed to preload next track", "guildID", s.guildID, "error", err)
		return
	}
	if ok {
		slog.Debug("preloaded next track", "guildID", s.guildID)
	}
}
