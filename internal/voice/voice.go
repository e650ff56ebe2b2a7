package voice

import (
	"github.com/bwmarrin/discordgo"
)

// IsVoiceChannel reports whether audio can be played in the channel.
func IsVoiceChannel(channel *discordgo.Channel) bool {
	if channel == nil {
		return false
	}
	return channel.Type == discordgo.ChannelTypeGuildVoice ||
		channel.Type == discordgo.ChannelTypeGuildStageVoice
}

// UserChannel returns the voice channel the user is connected to, or "".
func UserChannel(voiceStates []*discordgo.VoiceState, userID string) string {
	for _, vs := range voiceStates {
		if vs.UserID == userID {
			return vs.ChannelID
		}
	}
	return ""
}

// MaxAttendedChannel returns the ID of the channel with the most connected
// users, ignoring excludeUserID (usually the bot itself).
// This returns "" if nobody is connected anywhere.
func MaxAttendedChannel(voiceStates []*discordgo.VoiceState, excludeUserID string) string {
	attendance := make(map[string]int)
	for _, vs := range voiceStates {
		if vs.ChannelID == "" || vs.UserID == excludeUserID {
			continue
		}
		attendance[vs.ChannelID]++
	}

	var maxAttendedChannel string
	maxAttended := 0
	for channelID, count := range attendance {
		if count > maxAttended || (count == maxAttended && channelID < maxAttendedChannel) {
			maxAttendedChannel = channelID
			maxAttended = count
		}
	}

	return maxAttendedChannel
}
