// Package audio describes the PCM format the transcoder produces and the
// transport expects, and the remote source abstraction tracks are read from.
package audio

import "time"

// The transcoder must emit exactly this format; the voice sink encodes it
// frame by frame without any resampling.
const (
	SampleRate    = 48000
	Channels      = 2
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // s16le
)

// BytesPerSecond is the PCM throughput of one second of audio.
const BytesPerSecond = SampleRate * Channels * 2
