package opus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/glizzus/jukebox/internal/audio"
)

var (
	ErrVoiceConnClosed = errors.New("voice connection send timeout")
	ErrSenderClosed    = errors.New("opus sender closed")
)

// PacketWriter receives encoded packets, one per frame.
type PacketWriter interface {
	WritePacket(packet []byte) error
}

// ChannelWriter sends packets on a voice connection's send channel. A send
// that blocks for longer than Timeout fails with ErrVoiceConnClosed.
type ChannelWriter struct {
	C       chan<- []byte
	Timeout time.Duration
}

func (c ChannelWriter) WritePacket(packet []byte) error {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case c.C <- packet:
		return nil
	case <-timer.C:
		return ErrVoiceConnClosed
	}
}

// Sender encodes PCM written to it into Opus packets. It is safe for
// concurrent use; writes are serialized and frames never interleave.
type Sender struct {
	mu      sync.Mutex
	enc     Encoder
	out     PacketWriter
	pending []byte
	samples []int16
	packet  []byte
	closed  bool
}

func NewSender(enc Encoder, out PacketWriter) *Sender {
	return &Sender{
		enc:     enc,
		out:     out,
		pending: make([]byte, 0, audio.FrameBytes),
		samples: make([]int16, audio.FrameSamples),
		packet:  make([]byte, maxPacketSize),
	}
}

var _ io.Writer = (*Sender)(nil)

// Write buffers p and emits a packet for every complete frame. A trailing
// partial frame stays buffered until more PCM arrives or Flush is called.
func (s *Sender) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrSenderClosed
	}

	written := 0
	for len(p) > 0 {
		n := min(audio.FrameBytes-len(s.pending), len(p))
		s.pending = append(s.pending, p[:n]...)
		p = p[n:]
		written += n

		if len(s.pending) < audio.FrameBytes {
			break
		}
		if err := s.emitLocked(); err != nil {
			return written, err
		}
	}
	return written, nil
}

// Flush pads a buffered partial frame with silence and sends it.
func (s *Sender) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}
	if len(s.pending) == 0 {
		return nil
	}
	s.pending = append(s.pending, make([]byte, audio.FrameBytes-len(s.pending))...)
	return s.emitLocked()
}

// Reset drops a buffered partial frame so the next write starts a new one.
func (s *Sender) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = s.pending[:0]
}

// Close drops any buffered partial frame. Later writes fail.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.pending = s.pending[:0]
	return nil
}

func (s *Sender) emitLocked() error {
	for i := range s.samples {
		s.samples[i] = int16(binary.LittleEndian.Uint16(s.pending[i*2:]))
	}
	s.pending = s.pending[:0]

	n, err := s.enc.Encode(s.samples, s.packet)
	if err != nil {
		return fmt.Errorf("unable to encode frame: %w", err)
	}

	// The receiver keeps the packet, so it gets its own copy.
	packet := make([]byte, n)
	copy(packet, s.packet[:n])
	return s.out.WritePacket(packet)
}
