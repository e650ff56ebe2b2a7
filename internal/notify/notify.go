// Package notify delivers human-readable playback status to users and to
// anything watching the bot, such as a dashboard.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Event is one status update for a guild. Code is the machine-readable result
// the message was rendered from.
type Event struct {
	GuildID   string
	ChannelID string
	Code      string
	Message   string
	Time      time.Time
}

type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// Log writes events to the default slog logger.
type Log struct{}

func (Log) Notify(ctx context.Context, event Event) error {
	slog.InfoContext(
		ctx,
		"Playback notification",
		slog.String("guildID", event.GuildID),
		slog.String("channelID", event.ChannelID),
		slog.String("code", event.Code),
		slog.String("message", event.Message),
	)
	return nil
}

var _ Notifier = Log{}

// Multi fans an event out to every notifier, continuing past failures.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, event Event) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Notifier = Multi(nil)
