// Package queue holds the per-guild play queue. Entries stay unevaluated until
// they reach the head, so at most the head and one preloaded entry ever have
// a fetch in flight.
package queue

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var ErrQueueEmpty = errors.New("queue is empty")

type Queue struct {
	mu      sync.Mutex
	pending []*PendingLoad
	current *Track
}

func New() *Queue {
	return &Queue{}
}

// Enqueue appends a loader and returns its pending entry.
func (q *Queue) Enqueue(load LoadFunc) *PendingLoad {
	p := NewPendingLoad(load)

	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, p)
	return p
}

// Len returns the number of entries that have not started playing.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Current returns the track being played, or nil.
func (q *Queue) Current() *Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.current
}

// Next removes the head entry, materializes it and makes it the current
// track. The previous current track must have been finished first.
func (q *Queue) Next(ctx context.Context) (*Track, error) {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return nil, ErrQueueEmpty
	}
	head := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.mu.Unlock()

	track, err := head.Materialize(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load track: %w", err)
	}

	q.mu.Lock()
	q.current = track
	q.mu.Unlock()
	return track, nil
}

// Preload materializes the head entry without removing it. It reports false
// when the queue is empty.
func (q *Queue) Preload(ctx context.Context) (bool, error) {
	q.mu.Lock()
	if len(q.pending) == 0 {
		q.mu.Unlock()
		return false, nil
	}
	head := q.pending[0]
	q.mu.Unlock()

	if _, err := head.Materialize(ctx); err != nil {
		return true, fmt.Errorf("failed to preload track: %w", err)
	}
	return true, nil
}

// Finish closes the current track's source and clears it.
func (q *Queue) Finish() {
	q.mu.Lock()
	track := q.current
	q.current = nil
	q.mu.Unlock()

	if track != nil && track.Source != nil {
		_ = track.Source.Close()
	}
}

// Clear finishes the current track and drops every pending entry.
func (q *Queue) Clear() {
	q.Finish()

	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, p := range pending {
		p.discard()
	}
}
