package playback

import (
	"context"
	"io"
)

// Connection is a live voice connection. Sink accepts 48 kHz stereo s16le PCM
// and must tolerate writes from more than one goroutine.
type Connection interface {
	ChannelID() string
	Sink() io.Writer
	Disconnect() error
}

// resetter is implemented by sinks that buffer a partial frame between
// writes. Reset drops it.
type resetter interface {
	Reset()
}

// Transport connects to voice channels. Connect fails with ErrChannelInvalid,
// ErrNotPermitted or ErrCannotUnsuppress for the expected negative outcomes;
// on ErrCannotUnsuppress it has already torn its connection down.
type Transport interface {
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Pipeline is the transcoder a Session feeds. See package pipeline.
type Pipeline interface {
	Start() error
	Restart() error
	Sink() io.WriteCloser
	Source() io.Reader
	Running() bool
	Close() error
}
