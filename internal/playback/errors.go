package playback

import "errors"

var (
	ErrSessionDisposed = errors.New("session has been disposed")
	ErrAlreadyDisposed = errors.New("session already disposed")
	ErrRegistryClosed  = errors.New("registry is closed")
)

// Errors a Transport reports from Connect.
var (
	ErrChannelInvalid   = errors.New("channel is not a voice channel")
	ErrNotPermitted     = errors.New("missing permission to connect or speak")
	ErrCannotUnsuppress = errors.New("unable to become a speaker in the stage channel")
)
