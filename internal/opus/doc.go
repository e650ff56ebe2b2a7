// Package opus turns the transcoder's raw PCM into Opus packets for voice
// playback.
//
// A Sender is an io.Writer that accepts 48kHz stereo s16le PCM in arbitrary
// chunks, cuts it into 20ms frames and encodes each frame into one Opus
// packet. Packets go to a PacketWriter: a ChannelWriter feeds a voice
// connection's send channel, a FrameWriter stores them in a minimal binary
// format of concatenated length-prefixed frames ([uint16 LE length][opus
// bytes]) with no headers and no metadata. FrameReader reads that format back.
package opus
