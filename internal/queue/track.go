package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/glizzus/jukebox/internal/audio"
)

// Track is one materialized queue entry. It is not modified after its loader
// returns it.
type Track struct {
	Title     string
	Duration  time.Duration
	Source    audio.Source
	Requester string
}

// LoadFunc fetches a track. It typically performs network I/O.
type LoadFunc func(ctx context.Context) (*Track, error)

var errNilTrack = errors.New("loader returned no track")

// PendingLoad is a queue entry that has not been played yet.
// The wrapped loader runs at most once; every Materialize call after the
// first returns the same track and error.
type PendingLoad struct {
	load LoadFunc

	once  sync.Once
	ready atomic.Bool
	track *Track
	err   error
}

func NewPendingLoad(load LoadFunc) *PendingLoad {
	return &PendingLoad{load: load}
}

// Materialize runs the loader if it has not run yet. Concurrent callers block
// until the single evaluation finishes.
func (p *PendingLoad) Materialize(ctx context.Context) (*Track, error) {
	p.once.Do(func() {
		defer p.ready.Store(true)
		track, err := p.load(ctx)
		if err == nil && track == nil {
			err = errNilTrack
		}
		p.track, p.err = track, err
	})
	return p.track, p.err
}

// Materialized reports whether the loader has finished.
func (p *PendingLoad) Materialized() bool {
	return p.ready.Load()
}

// discard releases the source of a track that was loaded but never played.
func (p *PendingLoad) discard() {
	if !p.Materialized() || p.track == nil || p.track.Source == nil {
		return
	}
	_ = p.track.Source.Close()
}
