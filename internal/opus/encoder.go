package opus

import (
	"fmt"

	"gopkg.in/hraban/opus.v2"

	"github.com/glizzus/jukebox/internal/audio"
)

// DefaultBitrate is the Opus bitrate in bits per second.
const DefaultBitrate = 96000

// maxPacketSize bounds a single encoded packet.
const maxPacketSize = 4000

// Encoder encodes one frame of interleaved PCM samples into data.
type Encoder interface {
	Encode(pcm []int16, data []byte) (int, error)
}

var _ Encoder = (*opus.Encoder)(nil)

// NewEncoder returns a music-tuned encoder for the audio package's format.
func NewEncoder(bitrate int) (*opus.Encoder, error) {
	enc, err := opus.NewEncoder(audio.SampleRate, audio.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("unable to create opus encoder: %w", err)
	}
	if bitrate <= 0 {
		bitrate = DefaultBitrate
	}
	if err := enc.SetBitrate(bitrate); err != nil {
		return nil, fmt.Errorf("unable to set opus bitrate to %d: %w", bitrate, err)
	}
	return enc, nil
}
