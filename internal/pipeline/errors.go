package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrSpawn               = errors.New("unable to spawn transcoder")
	ErrUnsupportedPlatform = errors.New("platform cannot run the transcoder")
	ErrAlreadyDisposed     = errors.New("pipeline already disposed")
	ErrNotRunning          = errors.New("pipeline is not running")
)

// SpawnError is returned when the transcoder process cannot be started.
type SpawnError struct {
	Path string
	Err  error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("unable to spawn %s: %v", e.Path, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

func (e *SpawnError) Is(target error) bool {
	return target == ErrSpawn
}

var _ error = (*SpawnError)(nil)
