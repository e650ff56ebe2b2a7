package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

const copyBufferSize = 16 * 1024

// copyContext copies src to dst until EOF, an error, or ctx is cancelled.
// Cancellation is only noticed between reads, and a chunk that was already
// read is still written, so a final partial write may land after cancel.
func copyContext(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, copyBufferSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(rerr, io.EOF) {
			return nil
		}
		if rerr != nil {
			return rerr
		}
	}
}

// attempt is one run of the copy loop pair for the current track. Pause and
// skip cancel it; resume starts a new attempt on the same track.
type attempt struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc

	source io.Reader
	sink   io.WriteCloser
	pcm    io.Reader
	out    io.Writer

	// timed is false for tracks without a duration; those end when the
	// transcoder has drained instead of when the clock runs out.
	timed bool

	// after is closed once the previous attempt stopped reading the track
	// source. Sources are not safe for concurrent reads, so only the feeder
	// waits for it.
	after      <-chan struct{}
	sourceDone chan struct{}
}

func (s *Session) runAttempt(a *attempt) {
	g, gctx := errgroup.WithContext(a.ctx)

	g.Go(func() error {
		defer close(a.sourceDone)
		// The previous attempt's feeder may still be blocked writing to the
		// transcoder. The output loop below drains the transcoder, which lets
		// that write finish and the feeder notice it was cancelled.
		if a.after != nil {
			select {
			case <-a.after:
			case <-gctx.Done():
				return nil
			}
		}
		if err := copyContext(gctx, a.sink, a.source); err != nil {
			if a.ctx.Err() != nil {
				return nil
			}
			err = fmt.Errorf("failed to feed transcoder: %w", err)
			s.streamFailed(a.id, err)
			return err
		}
		// The source is exhausted; closing stdin lets the transcoder flush
		// what it still holds.
		_ = a.sink.Close()
		return nil
	})

	g.Go(func() error {
		if err := copyContext(gctx, a.out, a.pcm); err != nil {
			if a.ctx.Err() != nil {
				return nil
			}
			err = fmt.Errorf("failed to write to voice: %w", err)
			s.streamFailed(a.id, err)
			return err
		}
		return nil
	})

	err := g.Wait()
	slog.Debug(
		"copy loops exited",
		"guildID", s.guildID,
		"attempt", a.id,
		"cancelled", a.ctx.Err() != nil,
		"error", err,
	)
	if err == nil && a.ctx.Err() == nil && !a.timed {
		s.endTrack(a.id, nil)
	}
}

// streamFailed treats a mid-track I/O failure as the end of the track. It
// runs before the sibling loop exits, because restarting the transcoder is
// what unblocks that loop.
func (s *Session) streamFailed(attemptID string, err error) {
	slog.Warn("stream failed, ending track", "guildID", s.guildID, "attempt", attemptID, "error", err)
	s.endTrack(attemptID, err)
}
