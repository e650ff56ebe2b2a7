package queue_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/glizzus/jukebox/internal/queue"
	"github.com/google/go-cmp/cmp"
)

func titled(title string, calls *atomic.Int32) queue.LoadFunc {
	return func(ctx context.Context) (*queue.Track, error) {
		if calls != nil {
			calls.Add(1)
		}
		return &queue.Track{Title: title, Duration: time.Second}, nil
	}
}

func TestQueueFIFO(t *testing.T) {
	q := queue.New()
	want := []string{"a", "b", "c", "d"}
	for _, title := range want {
		q.Enqueue(titled(title, nil))
	}

	var got []string
	for {
		track, err := q.Next(t.Context())
		if errors.Is(err, queue.ErrQueueEmpty) {
			break
		}
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, track.Title)
		q.Finish()
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("dequeue order mismatch (-want +got):\n%s", diff)
	}
}

func TestQueueLazyEvaluation(t *testing.T) {
	q := queue.New()
	var first, second atomic.Int32
	q.Enqueue(titled("first", &first))
	q.Enqueue(titled("second", &second))

	if first.Load() != 0 || second.Load() != 0 {
		t.Fatalf("loaders evaluated on enqueue")
	}

	if _, err := q.Next(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Load() != 1 {
		t.Errorf("expected head loader evaluated once, got %d", first.Load())
	}
	if second.Load() != 0 {
		t.Errorf("expected second loader untouched, got %d", second.Load())
	}
}

func TestQueuePreloadEvaluatesOnce(t *testing.T) {
	q := queue.New()
	var calls atomic.Int32
	q.Enqueue(titled("head", &calls))

	for range 3 {
		ok, err := q.Preload(t.Context())
		if err != nil || !ok {
			t.Fatalf("Preload() = (%v, %v)", ok, err)
		}
	}
	track, err := q.Next(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if track.Title != "head" {
		t.Errorf("expected head, got %s", track.Title)
	}
	if calls.Load() != 1 {
		t.Errorf("expected loader to run once, ran %d times", calls.Load())
	}
}

func TestPendingLoadConcurrentMaterialize(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	p := queue.NewPendingLoad(func(ctx context.Context) (*queue.Track, error) {
		calls.Add(1)
		<-release
		return &queue.Track{Title: "slow"}, nil
	})

	var wg sync.WaitGroup
	titles := make([]string, 8)
	for i := range titles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			track, err := p.Materialize(context.Background())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			titles[i] = track.Title
		}()
	}
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("expected one evaluation, got %d", calls.Load())
	}
	for i, title := range titles {
		if title != "slow" {
			t.Errorf("caller %d got title %q", i, title)
		}
	}
	if !p.Materialized() {
		t.Errorf("expected entry to report materialized")
	}
}

func TestQueueLoadFailure(t *testing.T) {
	q := queue.New()
	q.Enqueue(func(ctx context.Context) (*queue.Track, error) {
		return nil, fmt.Errorf("manifest unavailable")
	})
	q.Enqueue(func(ctx context.Context) (*queue.Track, error) {
		return nil, nil
	})

	if _, err := q.Next(t.Context()); err == nil {
		t.Errorf("expected error from failing loader")
	}
	if _, err := q.Next(t.Context()); err == nil {
		t.Errorf("expected error from loader returning no track")
	}
	if q.Current() != nil {
		t.Errorf("expected no current track after failed loads")
	}
	if q.Len() != 0 {
		t.Errorf("expected failed entries to be consumed, %d left", q.Len())
	}
}

type closeRecorder struct {
	closed atomic.Int32
}

func (c *closeRecorder) Read(p []byte) (int, error) { return 0, nil }
func (c *closeRecorder) Close() error              { c.closed.Add(1); return nil }
func (c *closeRecorder) Size() (int64, bool)       { return 0, false }
func (c *closeRecorder) Position() int64           { return 0 }

func TestQueueClearClosesSources(t *testing.T) {
	q := queue.New()
	current := &closeRecorder{}
	preloaded := &closeRecorder{}
	untouched := &closeRecorder{}

	q.Enqueue(func(ctx context.Context) (*queue.Track, error) {
		return &queue.Track{Title: "current", Source: current}, nil
	})
	q.Enqueue(func(ctx context.Context) (*queue.Track, error) {
		return &queue.Track{Title: "preloaded", Source: preloaded}, nil
	})
	q.Enqueue(func(ctx context.Context) (*queue.Track, error) {
		return &queue.Track{Title: "untouched", Source: untouched}, nil
	})

	if _, err := q.Next(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := q.Preload(t.Context()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	q.Clear()

	if current.closed.Load() != 1 {
		t.Errorf("expected current source closed once, got %d", current.closed.Load())
	}
	if preloaded.closed.Load() != 1 {
		t.Errorf("expected preloaded source closed once, got %d", preloaded.closed.Load())
	}
	if untouched.closed.Load() != 0 {
		t.Errorf("expected unloaded source untouched, got %d closes", untouched.closed.Load())
	}
	if q.Len() != 0 || q.Current() != nil {
		t.Errorf("expected empty queue after Clear")
	}
}
