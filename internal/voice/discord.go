package voice

import (
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
)

// DiscordGateway adapts a discordgo session to Gateway.
type DiscordGateway struct {
	Session *discordgo.Session
}

var _ Gateway = DiscordGateway{}

func (d DiscordGateway) Channel(channelID string) (*discordgo.Channel, error) {
	if ch, err := d.Session.State.Channel(channelID); err == nil {
		return ch, nil
	}
	return d.Session.Channel(channelID)
}

func (d DiscordGateway) BotPermissions(channelID string) (int64, error) {
	return d.Session.UserChannelPermissions(d.Session.State.User.ID, channelID)
}

func (d DiscordGateway) JoinVoice(guildID, channelID string) (VoiceConn, error) {
	vc, err := d.Session.ChannelVoiceJoin(guildID, channelID, false, true)
	if err != nil {
		return nil, err
	}
	return discordVoice{vc}, nil
}

type stageVoiceState struct {
	ChannelID string `json:"channel_id"`
	Suppress  bool   `json:"suppress"`
}

// Unsuppress moves the bot to the speakers of a stage channel.
func (d DiscordGateway) Unsuppress(guildID, channelID string) error {
	endpoint := discordgo.EndpointGuild(guildID) + "/voice-states/@me"
	_, err := d.Session.RequestWithBucketID(
		http.MethodPatch,
		endpoint,
		stageVoiceState{ChannelID: channelID, Suppress: false},
		endpoint,
	)
	if err != nil {
		return fmt.Errorf("unable to unsuppress in stage %s: %w", channelID, err)
	}
	return nil
}

type discordVoice struct {
	vc *discordgo.VoiceConnection
}

func (d discordVoice) Speaking(speaking bool) error { return d.vc.Speaking(speaking) }
func (d discordVoice) Disconnect() error            { return d.vc.Disconnect() }
func (d discordVoice) OpusSend() chan<- []byte      { return d.vc.OpusSend }
