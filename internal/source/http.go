package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/glizzus/jukebox/internal/audio"
)

// DefaultChunkSize is the range size used for hosts that throttle long
// single-request downloads.
const DefaultChunkSize = 9_898_989

var ErrUnexpectedStatus = errors.New("unexpected HTTP status")

// HTTPClient is an abstraction for making HTTP requests.
// The implementation is usually Go's stdlib http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPSource streams a remote file. When chunking applies, the body is fetched
// as consecutive byte ranges of at most chunkSize bytes, each requested only
// once the previous one has been read.
type HTTPSource struct {
	client    HTTPClient
	url       string
	chunkSize int64

	ctx    context.Context
	cancel context.CancelFunc

	// mu guards the body for Read and Close. Size and Position are read by
	// the playback clock while a Read may be blocked, so they are atomic.
	mu     sync.Mutex
	body   io.ReadCloser
	closed bool

	size atomic.Int64
	pos  atomic.Int64
}

// ShouldChunk reports whether url is fetched in ranges. URLs that already opt
// out of rate limiting are fetched in one request.
func ShouldChunk(url string, chunkSize int64) bool {
	return chunkSize > 0 && !strings.Contains(url, "ratebypass=yes")
}

// OpenHTTP issues the first request for url. A chunkSize of 0 disables
// chunking. The returned source outlives ctx; Close releases it.
func OpenHTTP(ctx context.Context, client HTTPClient, url string, chunkSize int64) (*HTTPSource, error) {
	if !ShouldChunk(url, chunkSize) {
		chunkSize = 0
	}

	sctx, cancel := context.WithCancel(context.Background())
	s := &HTTPSource{
		client:    client,
		url:       url,
		chunkSize: chunkSize,
		ctx:       sctx,
		cancel:    cancel,
	}
	s.size.Store(-1)

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := s.fetch(0); err != nil {
		cancel()
		return nil, err
	}
	return s, nil
}

// fetch opens the body starting at offset.
func (s *HTTPSource) fetch(offset int64) error {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if s.chunkSize > 0 {
		end := offset + s.chunkSize - 1
		if size := s.size.Load(); size >= 0 {
			end = min(end, size-1)
		}
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, end))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusPartialContent:
		if total, ok := parseContentRangeTotal(resp.Header.Get("Content-Range")); ok {
			s.size.Store(total)
		}
	case http.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		if offset > 0 {
			// Ran past the end of a file whose length was never reported.
			return io.EOF
		}
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	case http.StatusOK:
		if offset > 0 {
			resp.Body.Close()
			return fmt.Errorf("%w: server ignored range at offset %d", ErrUnexpectedStatus, offset)
		}
		// The whole file came back; no more ranges are needed.
		s.chunkSize = 0
		if resp.ContentLength >= 0 {
			s.size.Store(resp.ContentLength)
		}
	default:
		resp.Body.Close()
		return fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}

	s.body = resp.Body
	return nil
}

// parseContentRangeTotal extracts the complete length from a header like
// "bytes 0-99/1234".
func parseContentRangeTotal(header string) (int64, bool) {
	_, total, found := strings.Cut(header, "/")
	if !found || total == "*" {
		return 0, false
	}
	n, err := strconv.ParseInt(total, 10, 64)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

func (s *HTTPSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		if s.closed {
			return 0, io.ErrClosedPipe
		}
		if s.body == nil {
			pos := s.pos.Load()
			if size := s.size.Load(); s.chunkSize == 0 || (size >= 0 && pos >= size) {
				return 0, io.EOF
			}
			if err := s.fetch(pos); err != nil {
				return 0, err
			}
		}

		n, err := s.body.Read(p)
		s.pos.Add(int64(n))
		if errors.Is(err, io.EOF) {
			s.body.Close()
			s.body = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *HTTPSource) Close() error {
	s.cancel()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.body != nil {
		err := s.body.Close()
		s.body = nil
		return err
	}
	return nil
}

func (s *HTTPSource) Size() (int64, bool) {
	size := s.size.Load()
	return size, size >= 0
}

func (s *HTTPSource) Position() int64 {
	return s.pos.Load()
}

var _ audio.Source = (*HTTPSource)(nil)
