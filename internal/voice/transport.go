package voice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/glizzus/jukebox/internal/opus"
	"github.com/glizzus/jukebox/internal/playback"
)

const requiredPermissions = discordgo.PermissionVoiceConnect | discordgo.PermissionVoiceSpeak

// Gateway is the part of the Discord API the transport needs.
type Gateway interface {
	Channel(channelID string) (*discordgo.Channel, error)
	BotPermissions(channelID string) (int64, error)
	JoinVoice(guildID, channelID string) (VoiceConn, error)
	Unsuppress(guildID, channelID string) error
}

// VoiceConn is a joined voice channel.
type VoiceConn interface {
	Speaking(speaking bool) error
	Disconnect() error
	OpusSend() chan<- []byte
}

type TransportConfig struct {
	Gateway Gateway

	// NewEncoder creates the Opus encoder for each connection.
	NewEncoder func() (opus.Encoder, error)

	// SendTimeout bounds how long a packet may wait for the voice connection.
	SendTimeout time.Duration
}

// Transport joins Discord voice channels for playback sessions.
type Transport struct {
	cfg TransportConfig
}

func NewTransport(cfg TransportConfig) *Transport {
	if cfg.NewEncoder == nil {
		cfg.NewEncoder = func() (opus.Encoder, error) {
			return opus.NewEncoder(opus.DefaultBitrate)
		}
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = time.Minute
	}
	return &Transport{cfg: cfg}
}

var _ playback.Transport = (*Transport)(nil)

// Connect joins the channel self-deafened and starts speaking. Stage channels
// additionally need the bot to be moved to the speakers.
func (t *Transport) Connect(ctx context.Context, guildID, channelID string) (playback.Connection, error) {
	channel, err := t.cfg.Gateway.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("unable to fetch channel %s: %w", channelID, err)
	}
	if !IsVoiceChannel(channel) || channel.GuildID != guildID {
		return nil, playback.ErrChannelInvalid
	}

	perms, err := t.cfg.Gateway.BotPermissions(channelID)
	if err != nil {
		return nil, fmt.Errorf("unable to resolve permissions in %s: %w", channelID, err)
	}
	if perms&requiredPermissions != requiredPermissions {
		return nil, playback.ErrNotPermitted
	}

	enc, err := t.cfg.NewEncoder()
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vc, err := t.cfg.Gateway.JoinVoice(guildID, channelID)
	if err != nil {
		return nil, fmt.Errorf("unable to join the voice channel: %w", err)
	}

	if err := vc.Speaking(true); err != nil {
		disconnect(vc, guildID)
		return nil, fmt.Errorf("error setting speaking state to 'true': %w", err)
	}

	if channel.Type == discordgo.ChannelTypeGuildStageVoice {
		if err := t.cfg.Gateway.Unsuppress(guildID, channelID); err != nil {
			disconnect(vc, guildID)
			return nil, fmt.Errorf("%w: %v", playback.ErrCannotUnsuppress, err)
		}
	}

	sender := opus.NewSender(enc, opus.ChannelWriter{C: vc.OpusSend(), Timeout: t.cfg.SendTimeout})
	return &Connection{channelID: channelID, guildID: guildID, vc: vc, sender: sender}, nil
}

func disconnect(vc VoiceConn, guildID string) {
	if err := vc.Disconnect(); err != nil {
		slog.Error("failed to disconnect", "guildID", guildID, "error", err)
	}
}

// Connection is a voice channel joined by Transport. Its sink encodes PCM
// into Opus and is safe for concurrent writes.
type Connection struct {
	channelID string
	guildID   string
	vc        VoiceConn
	sender    *opus.Sender
	once      sync.Once
	err       error
}

var _ playback.Connection = (*Connection)(nil)

func (c *Connection) ChannelID() string { return c.channelID }
func (c *Connection) Sink() io.Writer   { return c.sender }

func (c *Connection) Disconnect() error {
	c.once.Do(func() {
		_ = c.sender.Close()
		if err := c.vc.Speaking(false); err != nil {
			slog.Error("failed to stop speaking", "guildID", c.guildID, "error", err)
		}
		if err := c.vc.Disconnect(); err != nil {
			c.err = fmt.Errorf("unable to leave the voice channel: %w", err)
		}
	})
	return c.err
}
