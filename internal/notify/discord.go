package notify

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// MessageSender is the part of a discordgo session used to post messages.
type MessageSender interface {
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

var _ MessageSender = (*discordgo.Session)(nil)

// Discord posts event messages to the text channel the event names.
type Discord struct {
	Session MessageSender
}

func (d Discord) Notify(ctx context.Context, event Event) error {
	if event.ChannelID == "" || event.Message == "" {
		return nil
	}
	_, err := d.Session.ChannelMessageSend(event.ChannelID, event.Message, discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to post to channel %s: %w", event.ChannelID, err)
	}
	return nil
}

var _ Notifier = Discord{}
