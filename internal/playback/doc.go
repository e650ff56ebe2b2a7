// Package playback is the per-guild audio engine.
//
// A Session owns one voice connection, a play queue, a transcode pipeline and
// a playback clock. While playing it runs two copy loops (remote source into
// the transcoder, transcoder output into the voice sink) and a one-second
// ticker that counts the track down, preloads the next entry shortly before
// the end and ends the track when the clock reaches zero. The clock, not
// stream EOF, decides when a track with a known duration is over.
//
// The Registry maps guilds to Sessions. It exclusively owns them: callers go
// through Registry methods and never keep a Session past Leave or Close.
// Track ends travel from Session to Registry over a channel, and the Registry
// answers them by calling Play again.
package playback
