package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

const (
	CommandPing       = "ping"
	CommandJoin       = "join"
	CommandPlay       = "play"
	CommandPause      = "pause"
	CommandResume     = "resume"
	CommandSkip       = "skip"
	CommandLeave      = "leave"
	CommandNowPlaying = "nowplaying"
)

const (
	optionChannel = "channel"
	optionURL     = "url"
	optionFile    = "file"
)

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        CommandPing,
		Description: "Check that the bot is alive",
	},
	{
		Name:        CommandJoin,
		Description: "Join a voice channel. Defaults to the one you are in.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        optionChannel,
				Type:        discordgo.ApplicationCommandOptionChannel,
				Description: "The voice or stage channel to join.",
				ChannelTypes: []discordgo.ChannelType{
					discordgo.ChannelTypeGuildVoice,
					discordgo.ChannelTypeGuildStageVoice,
				},
				Required: false,
			},
		},
	},
	{
		Name:        CommandPlay,
		Description: "Queue a track and start playing",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        optionURL,
				Type:        discordgo.ApplicationCommandOptionString,
				Description: "A link to an audio file or stream.",
				Required:    false,
			},
			{
				Name:        optionFile,
				Type:        discordgo.ApplicationCommandOptionAttachment,
				Description: "An audio file to upload and play.",
				Required:    false,
			},
		},
	},
	{
		Name:        CommandPause,
		Description: "Pause the current track",
	},
	{
		Name:        CommandResume,
		Description: "Resume a paused track",
	},
	{
		Name:        CommandSkip,
		Description: "Skip to the next track in the queue",
	},
	{
		Name:        CommandLeave,
		Description: "Leave the voice channel and drop the queue",
	},
	{
		Name:        CommandNowPlaying,
		Description: "Show the current track",
	},
}

// EstablishCommands registers Commands. An empty guildID registers them
// globally.
func EstablishCommands(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}
