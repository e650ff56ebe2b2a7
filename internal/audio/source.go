package audio

import (
	"io"
	"sync/atomic"
)

// Source is a remote audio byte stream. Size reports the total length when it
// is known up front. Position must be safe to call concurrently with Read.
type Source interface {
	io.ReadCloser
	Size() (int64, bool)
	Position() int64
}

// CountingSource adapts a plain io.ReadCloser into a Source by counting the
// bytes read through it.
type CountingSource struct {
	rc   io.ReadCloser
	size int64
	pos  atomic.Int64
}

// NewCountingSource wraps rc. A negative size means the length is unknown.
func NewCountingSource(rc io.ReadCloser, size int64) *CountingSource {
	return &CountingSource{rc: rc, size: size}
}

func (c *CountingSource) Read(p []byte) (int, error) {
	n, err := c.rc.Read(p)
	c.pos.Add(int64(n))
	return n, err
}

func (c *CountingSource) Close() error {
	return c.rc.Close()
}

func (c *CountingSource) Size() (int64, bool) {
	return c.size, c.size >= 0
}

func (c *CountingSource) Position() int64 {
	return c.pos.Load()
}

var _ Source = (*CountingSource)(nil)
