package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultStream = "jukebox_events"

// RedisStream appends events to a capped Redis stream so that other processes
// can follow playback.
type RedisStream struct {
	client *redis.Client
	stream string
	maxLen int64
}

func NewRedisStream(client *redis.Client, stream string, maxLen int64) *RedisStream {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

var _ Notifier = (*RedisStream)(nil)

func (r *RedisStream) Notify(ctx context.Context, event Event) error {
	err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: r.maxLen,
		Approx: r.maxLen > 0,
		Values: map[string]any{
			"guildID":   event.GuildID,
			"channelID": event.ChannelID,
			"code":      event.Code,
			"message":   event.Message,
			"time":      event.Time.Format(time.RFC3339Nano),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to append event to %s: %w", r.stream, err)
	}
	return nil
}

// StreamedEvent is an Event read back from the stream.
type StreamedEvent struct {
	ID string
	Event
}

// Tail reads events after lastID, blocking up to block for new ones. Use "$"
// to wait only for events appended from now on, or "0" to read from the
// start. An empty result with a nil error means nothing arrived in time.
func (r *RedisStream) Tail(ctx context.Context, lastID string, count int64, block time.Duration) ([]StreamedEvent, error) {
	streams, err := r.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{r.stream, lastID},
		Count:   count,
		Block:   block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read from %s: %w", r.stream, err)
	}

	var events []StreamedEvent
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			events = append(events, StreamedEvent{ID: msg.ID, Event: eventFromValues(msg.Values)})
		}
	}
	return events, nil
}

func eventFromValues(values map[string]any) Event {
	str := func(key string) string {
		s, _ := values[key].(string)
		return s
	}
	ev := Event{
		GuildID:   str("guildID"),
		ChannelID: str("channelID"),
		Code:      str("code"),
		Message:   str("message"),
	}
	if t, err := time.Parse(time.RFC3339Nano, str("time")); err == nil {
		ev.Time = t
	}
	return ev
}
