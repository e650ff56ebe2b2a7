// Package pipeline runs the external transcoder that turns an arbitrary audio
// stream into raw PCM.
//
// Bytes written to Sink are fed to FFmpeg's stdin; Source yields stereo signed
// 16-bit little-endian PCM at 48 kHz from its stdout. A pipeline is restarted
// between tracks instead of being reused, so audio still buffered inside the
// old process never leaks into the next track.
package pipeline
